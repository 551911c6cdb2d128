package db

import (
	"strings"
	"testing"

	"InterviewConv/config"

	mysqldriver "github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:     "db.local",
		DBPort:     "3307",
		DBUser:     "om",
		DBPassword: "p@ss:word",
		DBName:     "openmeetings",
	}
	dsn := DSN(cfg)

	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if parsed.Addr != "db.local:3307" || parsed.User != "om" || parsed.Passwd != "p@ss:word" || parsed.DBName != "openmeetings" {
		t.Errorf("parsed = %+v", parsed)
	}
	if !parsed.ParseTime {
		t.Error("parseTime not set")
	}
	if !strings.Contains(dsn, "charset=utf8mb4") {
		t.Errorf("dsn %q lacks charset", dsn)
	}
}
