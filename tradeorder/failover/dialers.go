package failover

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"math"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // database/sql driver "postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/birdtrade/trade-workload-go/tradeorder"
)

const (
	driverNamePQ         = "postgres"
	paramConnectTimeout  = "connect_timeout"
	singleConnectionPool = 1
)

var errNilConnection = errors.New("dialer returned no connection")

// PGXDialer opens a single *pgx.Conn per endpoint.
func PGXDialer() DialerFunc[*pgx.Conn] {
	return func(ctx context.Context, endpoint tradeorder.Endpoint) (*pgx.Conn, error) {
		config, parseErr := pgx.ParseConfig(endpoint.URI())
		if parseErr != nil {
			return nil, errors.Join(tradeorder.ErrInvalidEndpoint, parseErr)
		}

		config.ConnectTimeout = endpoint.ConnectTimeout()

		conn, connectErr := pgx.ConnectConfig(ctx, config)
		if connectErr != nil {
			return nil, connectErr
		}

		pingCtx, cancel := context.WithTimeout(ctx, endpoint.ConnectTimeout())
		defer cancel()

		if pingErr := conn.Ping(pingCtx); pingErr != nil {
			_ = conn.Close(context.WithoutCancel(ctx))
			return nil, pingErr
		}

		return conn, nil
	}
}

// SQLDBDialer opens a *sql.DB via lib/pq limited to one open connection, so a worker owns exactly one session.
func SQLDBDialer() DialerFunc[*sql.DB] {
	return func(ctx context.Context, endpoint tradeorder.Endpoint) (*sql.DB, error) {
		dsn, dsnErr := dsnWithConnectTimeout(endpoint)
		if dsnErr != nil {
			return nil, dsnErr
		}

		db, openErr := sql.Open(driverNamePQ, dsn)
		if openErr != nil {
			return nil, openErr
		}

		db.SetMaxOpenConns(singleConnectionPool)

		if pingErr := pingSQLDB(ctx, db, endpoint); pingErr != nil {
			_ = db.Close()
			return nil, pingErr
		}

		return db, nil
	}
}

// SQLXDialer opens a *sqlx.DB via lib/pq limited to one open connection.
func SQLXDialer() DialerFunc[*sqlx.DB] {
	return func(ctx context.Context, endpoint tradeorder.Endpoint) (*sqlx.DB, error) {
		dsn, dsnErr := dsnWithConnectTimeout(endpoint)
		if dsnErr != nil {
			return nil, dsnErr
		}

		db, openErr := sqlx.Open(driverNamePQ, dsn)
		if openErr != nil {
			return nil, openErr
		}

		db.SetMaxOpenConns(singleConnectionPool)

		if pingErr := pingSQLDB(ctx, db.DB, endpoint); pingErr != nil {
			_ = db.Close()
			return nil, pingErr
		}

		return db, nil
	}
}

// GORMDialer opens a *gorm.DB through the pgx based gorm postgres driver limited to one open connection.
func GORMDialer() DialerFunc[*gorm.DB] {
	return func(ctx context.Context, endpoint tradeorder.Endpoint) (*gorm.DB, error) {
		dsn, dsnErr := dsnWithConnectTimeout(endpoint)
		if dsnErr != nil {
			return nil, dsnErr
		}

		db, openErr := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
			DisableAutomaticPing: true,
		})
		if openErr != nil {
			return nil, openErr
		}

		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			closeGORMConnPool(db)
			return nil, dbErr
		}

		sqlDB.SetMaxOpenConns(singleConnectionPool)

		if pingErr := pingSQLDB(ctx, sqlDB, endpoint); pingErr != nil {
			_ = sqlDB.Close()
			return nil, pingErr
		}

		return db, nil
	}
}

func pingSQLDB(ctx context.Context, db *sql.DB, endpoint tradeorder.Endpoint) error {
	if db == nil {
		return errNilConnection
	}

	pingCtx, cancel := context.WithTimeout(ctx, endpoint.ConnectTimeout())
	defer cancel()

	return db.PingContext(pingCtx)
}

// dsnWithConnectTimeout adds the connect_timeout parameter (whole seconds, at least 1) unless the URI already has one.
func dsnWithConnectTimeout(endpoint tradeorder.Endpoint) (string, error) {
	parsedURL, parseErr := url.Parse(endpoint.URI())
	if parseErr != nil {
		return "", errors.Join(tradeorder.ErrInvalidEndpoint, parseErr)
	}

	query := parsedURL.Query()
	if query.Get(paramConnectTimeout) == "" {
		seconds := int(math.Ceil(endpoint.ConnectTimeout().Seconds()))
		if seconds < 1 {
			seconds = 1
		}

		query.Set(paramConnectTimeout, strconv.Itoa(seconds))
		parsedURL.RawQuery = query.Encode()
	}

	return parsedURL.String(), nil
}

// closeGORMConnPool closes the connection pool of a gorm handle whose *sql.DB cannot be obtained.
func closeGORMConnPool(db *gorm.DB) {
	if closer, ok := db.ConnPool.(io.Closer); ok {
		_ = closer.Close()
	}
}
