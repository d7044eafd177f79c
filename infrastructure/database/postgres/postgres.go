// Package postgres guarda a conexão usada pelo repositório de usuários quando
// AUTH_USER_STORE=postgres. Os dados do CRM nunca passam por aqui.
package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

// a tabela users é lida só no login, poucas conexões bastam
const (
	maxOpenConns    = 4
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
)

type Conn interface {
	Queryer
	BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	Close() error
	Ping(context.Context) error
	RunInTransaction(context.Context, func(*sql.Tx) error) error
}

type Connection struct {
	*sql.DB
}

// NewConnection abre o pool e só devolve depois de um ping bem sucedido
func NewConnection(ctx context.Context, cfg config.Database) (*Connection, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "driver %q", cfg.Driver)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "banco de usuários indisponível")
	}

	return &Connection{DB: db}, nil
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// RunInTransaction faz commit se fn terminar sem erro. Erro ou panic em fn
// desfaz a transação e o erro devolvido é sempre o de fn.
func (c *Connection) RunInTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "erro ao abrir transação")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.ForContext(ctx).WithError(rbErr).Warn("Rollback falhou")
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "erro no commit")
}
