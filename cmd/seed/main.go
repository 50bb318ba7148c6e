// seed registra una organización (tenant) en PostgreSQL y emite un token de administrador para ella.
//
// Uso: go run ./cmd/seed "Nombre de la organización" [NIT] [id]
// Sin id se genera un UUID nuevo; con un id existente actualiza nombre y NIT.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/postgres"
	"github.com/emiliofantozzi/cobra/pkg/config"
	"github.com/emiliofantozzi/cobra/pkg/jwt"
)

func main() {
	if len(os.Args) < 2 || strings.TrimSpace(os.Args[1]) == "" {
		fmt.Fprintln(os.Stderr, `uso: seed "Nombre" [NIT] [id]`)
		os.Exit(2)
	}
	org := entity.Organization{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(os.Args[1]),
		Status:    entity.OrganizationActive,
		UpdatedAt: time.Now().UTC(),
	}
	if len(os.Args) > 2 {
		org.TaxID = strings.TrimSpace(os.Args[2])
	}
	if len(os.Args) > 3 {
		id, err := uuid.Parse(os.Args[3])
		if err != nil {
			fmt.Fprintf(os.Stderr, "id inválido: %v\n", err)
			os.Exit(2)
		}
		org.ID = id.String()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET es requerido para emitir el token")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := postgres.Migrate(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "migraciones: %v\n", err)
		os.Exit(1)
	}
	if err := postgres.NewOrganizationRepository(pool).Upsert(ctx, &org); err != nil {
		fmt.Fprintf(os.Stderr, "organización: %v\n", err)
		os.Exit(1)
	}

	token, err := jwt.Generate(cfg.JWT.Secret, "seed:"+org.ID, org.ID, "admin", cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("organization_id=%s\n", org.ID)
	fmt.Printf("token=%s\n", token)
}
