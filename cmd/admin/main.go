// cmd/admin: operator commands for the remisiones backend.
//
//	admin seed-user --username recepcion@muneras.co --password 1234 --rol recepcion
//	admin hash --password secreto
//	admin dlq list --queue jobs:comprobante
//	admin dlq retry --queue jobs:email
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"medicalmuneras/internal/config"
	"medicalmuneras/internal/infra"
	"medicalmuneras/internal/model"
	"medicalmuneras/internal/repository"
	"medicalmuneras/internal/service"
	"medicalmuneras/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Herramientas de operacion del backend de remisiones",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(seedUserCmd(), hashCmd(), dlqCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func seedUserCmd() *cobra.Command {
	var username, nombre, password, rol string
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Crea o actualiza un usuario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := infra.NewDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			svc := service.NewAuthService(repository.NewUsuarioRepository(db), cfg)
			u, err := svc.SembrarUsuario(cmd.Context(), username, nombre, password, rol)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "usuario %q (%s) creado/actualizado\n", u.Username, u.Rol)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin@muneras.co", "usuario o email de login")
	cmd.Flags().StringVar(&nombre, "nombre", "Administrador", "nombre visible")
	cmd.Flags().StringVar(&password, "password", "", "password en claro")
	cmd.Flags().StringVar(&rol, "rol", model.RolAdministrador, "administrador | recepcion | tecnico")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func hashCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Imprime el hash bcrypt de un password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := bcrypt.GenerateFromPassword([]byte(password), 12)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(h))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password en claro")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func dlqCmd() *cobra.Command {
	var queue string
	var limit int64

	dlq := &cobra.Command{Use: "dlq", Short: "Inspecciona y reencola trabajos fallidos"}
	dlq.PersistentFlags().StringVar(&queue, "queue", worker.QueueComprobante, "cola de origen")

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista los trabajos en la DLQ",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRedis(cmd.Context(), func(ctx context.Context, rdb *redis.Client) error {
				entries, err := worker.ListDLQ(ctx, rdb, queue, limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tintentos=%d\t%s\t%s\n",
						e.FailedAt, e.JobType, e.Attempts, e.Reason, string(e.Payload))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d entradas\n", len(entries))
				return nil
			})
		},
	}
	list.Flags().Int64Var(&limit, "limit", 50, "maximo de entradas")

	retry := &cobra.Command{
		Use:   "retry",
		Short: "Devuelve todos los trabajos de la DLQ a su cola",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRedis(cmd.Context(), func(ctx context.Context, rdb *redis.Client) error {
				n, err := worker.RequeueDLQ(ctx, rdb, queue)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d trabajos reencolados en %s\n", n, queue)
				return nil
			})
		},
	}

	dlq.AddCommand(list, retry)
	return dlq
}

func withRedis(ctx context.Context, fn func(context.Context, *redis.Client) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()
	return fn(ctx, rdb)
}
