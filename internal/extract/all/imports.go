// Package all wires all built-in database backends into the extract factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete backend to run, which
// in turn register their factories with the extract package.
//
// In other words, importing this package makes the following database kinds
// available at runtime:
//
//   - "postgres", "postgresql" (stacbuild/internal/extract/postgres)
//   - "mssql"                  (stacbuild/internal/extract/mssql)
//   - "sqlite"                 (stacbuild/internal/extract/sqlite)
package all

import (
	_ "stacbuild/internal/extract/mssql"
	_ "stacbuild/internal/extract/postgres"
	_ "stacbuild/internal/extract/sqlite"
)
