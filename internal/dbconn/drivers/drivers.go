// Package drivers registers the database drivers the pipeline can talk to.
// Import it for side effects from the binary entry point:
//
//	import _ "scetl/internal/dbconn/drivers"
//
// Keeping the blank imports here (instead of in dbconn) means tests and
// library consumers do not pull in driver code they do not use.
package drivers

import (
	_ "github.com/go-sql-driver/mysql" // driver "mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx"
	_ "modernc.org/sqlite"             // driver "sqlite"
)
