package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/db"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// 空なら同梱リストで埋める
func newSeedCmd() *cobra.Command {
	var withFunctions bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the products table from the bundled catalog when it is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if withFunctions {
				if err := db.EnsureFunctions(a.db); err != nil {
					return err
				}
			}

			rep := a.catalog.Initialize(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if rep.Error != "" {
				return errors.New(rep.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withFunctions, "functions", false, "create get_all_products() and insert_product() first")
	return cmd
}

// ファイル省略時は同梱リスト
func newImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge products into the store (insert new ids, overwrite non-empty fields)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var products []model.Product
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(b, &products); err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			rep, err := a.admin.Import(cmd.Context(), cliActor, products)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON array of products")
	return cmd
}

func newDebugConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug-connection",
		Short: "Check database, products table and procedure access",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			return printJSON(cmd.OutOrStdout(), a.admin.DebugConnection(cmd.Context()))
		},
	}
}

// 最初の管理者を作る（usersの行はログイン時に作られる）
func newGrantAdminCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "grant-admin <user-id>",
		Short: "Set a user's role (ADMIN by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			u, err := a.users.SetRole(cmd.Context(), cliActor, args[0], role)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "USER or ADMIN")
	return cmd
}

// ローカル開発用。本番のトークンは認証プロバイダが発行する
func newDevTokenCmd() *cobra.Command {
	var (
		sub   string
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Mint an HS256 token signed with AUTH_JWT_SECRET (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.IsProd() {
				return errors.New("dev-token is disabled when GO_ENV=prod")
			}
			if sub == "" {
				return errors.New("--sub is required")
			}

			token, err := signDevToken(cfg.AuthJWTSecret, sub, email, time.Now(), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "user id (subject)")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func signDevToken(secret string, sub string, email string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
