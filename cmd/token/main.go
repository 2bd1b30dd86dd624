package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"gocontracts/internal/pkg/middleware"
	"gocontracts/internal/pkg/token"
)

type tokenEnv struct {
	SecretKey string        `envconfig:"JWT_SECRET_KEY" required:"true"`
	Expiry    time.Duration `envconfig:"JWT_EXPIRY" default:"60m"`
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var subject, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite um token JWT de operador para as rotas /v1",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != middleware.RoleAdmin && role != middleware.RoleOperator {
				return fmt.Errorf("papel inválido %q: use %s ou %s", role, middleware.RoleAdmin, middleware.RoleOperator)
			}
			// Só as variáveis de JWT; não exige DATABASE_URL.
			var env tokenEnv
			if err := envconfig.Process("", &env); err != nil {
				return err
			}

			signed, err := token.NewService(env.SecretKey, env.Expiry).GenerateToken(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "identificação do operador")
	cmd.Flags().StringVar(&role, "role", middleware.RoleOperator, "papel do operador (admin|operator)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
