package replica

import "fmt"

// dialect papers over the few SQL differences between the production
// MariaDB replicas and SQLite snapshots.
type dialect struct {
	driver string
	text   func(col string) string
}

var (
	mysqlDialect = dialect{
		driver: "mysql",
		text:   func(col string) string { return "CONVERT(" + col + " USING utf8mb4)" },
	}
	sqliteDialect = dialect{
		driver: "sqlite",
		text:   func(col string) string { return "CAST(" + col + " AS TEXT)" },
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", "mysql":
		return mysqlDialect, nil
	case "sqlite":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("replica: unsupported driver %q", driver)
	}
}
