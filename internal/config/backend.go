package config

// ConfigBackend abstracts where non-secret settings are persisted.
// Keys are dotted paths such as "selection.limit".
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	GetStrings(key string) (val []string, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	SetStrings(key string, val []string) error
	Delete(key string) error
}
