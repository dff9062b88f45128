package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang/glog"
	// Registers the postgres driver with database/sql
	_ "github.com/lib/pq"
)

var db *sql.DB

// Er is satisfied by both *sql.DB and *sql.Tx so that helpers can be called
// within or outside of a transaction
type Er interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// DBConfig stores the connection information used by InitDBConnection to
// establish a connection to the database
type DBConfig struct {
	Host     string
	Port     int64
	Database string
	Username string
	Password string
}

// InitDBConnection will establish the connection to the database or die trying
func InitDBConnection(c DBConfig) {
	var err error
	db, err = sql.Open(
		"postgres",
		fmt.Sprintf(
			"user=%s dbname=%s host=%s port=%d password=%s sslmode=%s",
			c.Username,
			c.Database,
			c.Host,
			c.Port,
			c.Password,
			"disable",
		),
	)
	if err != nil {
		glog.Fatal(fmt.Sprintf("Database connection failed: %v", err.Error()))
	}

	err = db.Ping()
	if err != nil {
		glog.Fatal(err)
	}

	// PostgreSQL max is 100, stay under it so that migrations and humans can
	// still connect
	db.SetMaxOpenConns(90)
	db.SetConnMaxIdleTime(5 * time.Minute)
}

// GetConnection returns a connection from the connection pool of the already
// instantiated db object
func GetConnection() (*sql.DB, error) {
	if db == nil {
		return nil, fmt.Errorf("Database connection has not been initialised")
	}
	return db, nil
}

// GetTransaction will begin and then return a transaction on the already
// instantiated db object
func GetTransaction() (*sql.Tx, error) {
	if db == nil {
		return nil, fmt.Errorf("Database connection has not been initialised")
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("Could not start a transaction: %v", err.Error())
	}

	return tx, err
}

// PingDB checks the database is reachable within the context deadline
func PingDB(ctx context.Context) error {
	if db == nil {
		return fmt.Errorf("Database connection has not been initialised")
	}
	return db.PingContext(ctx)
}
