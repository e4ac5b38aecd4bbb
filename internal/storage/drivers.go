package storage

import (
	// Registered database/sql drivers, selected by store.driver
	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SupportedDrivers lists the values accepted for store.driver
var SupportedDrivers = []string{"clickhouse", "pgx", "postgres", "sqlite3"}
