// Script de carga de usuários no PostgreSQL a partir do arquivo de credenciais.
//
//	go run ./infrastructure/migration/script -credentials credentials.yaml
//	go run ./infrastructure/migration/script -hash "minha senha"
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/database/postgres"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/repository"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id            SERIAL PRIMARY KEY,
	username      VARCHAR(100) NOT NULL UNIQUE,
	name          VARCHAR(255) NOT NULL DEFAULT '',
	email         VARCHAR(255) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role_id       INTEGER NOT NULL DEFAULT 2,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMP NOT NULL DEFAULT NOW()
)`

func main() {
	credentials := flag.String("credentials", "", "arquivo YAML de credenciais (padrão: AUTH_CREDENTIALS_FILE)")
	hash := flag.String("hash", "", "gera o bcrypt de uma senha para o arquivo de credenciais e sai")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})

	if *hash != "" {
		out, err := bcrypt.GenerateFromPassword([]byte(*hash), bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Fatal("Erro ao gerar hash")
		}
		fmt.Fprintln(os.Stdout, string(out))
		return
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao carregar configuração")
	}

	path := cfg.Auth.CredentialsFile
	if *credentials != "" {
		path = *credentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := seed(ctx, cfg.Database, path); err != nil {
		logrus.WithError(err).Fatal("Carga de usuários falhou")
	}
}

func seed(ctx context.Context, dbConfig config.Database, path string) error {
	fileRepo, err := repository.NewFileUserRepository(path)
	if err != nil {
		return err
	}
	logrus.Infof("Iniciando carga de %d usuários de %s", fileRepo.Len(), path)

	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		return errors.Wrap(err, "erro ao conectar ao PostgreSQL")
	}
	defer conn.Close()

	startTime := time.Now()
	inserted, skipped := 0, 0

	err = conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createUsersTable); err != nil {
			return errors.Wrap(err, "erro ao criar tabela users")
		}

		repo := repository.NewPostgresUserRepository(tx)
		for _, user := range fileRepo.Users() {
			u := user
			if _, err := repo.CreateUser(ctx, &u); err != nil {
				if errors.Is(err, repository.ErrDuplicateUsername) {
					logrus.Warnf("AVISO: usuário %s já existe, ignorado", user.Username)
					skipped++
					continue
				}
				return errors.Wrapf(err, "usuário %s", user.Username)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.Infof("Carga concluída em %v. Inseridos: %d, Ignorados: %d", time.Since(startTime), inserted, skipped)
	return nil
}
