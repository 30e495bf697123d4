package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront_sdk"
)

// app carries the flags and the SDK shared by every command.
type app struct {
	configFile string
	jsonOut    bool
	email      string
	password   string

	cfg storefront_sdk.Config
	sdk *storefront_sdk.SDK
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Browse, buy and sell on the storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := storefront_sdk.LoadConfig(a.configFile)
			if err != nil {
				return err
			}
			if cfg.SessionFile == "" {
				if home, err := os.UserHomeDir(); err == nil {
					cfg.SessionFile = filepath.Join(home, ".storefront", "session.json")
				}
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.sdk.Close()
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./storefront.yaml or ~/.storefront/storefront.yaml)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")
	root.PersistentFlags().StringVar(&a.email, "email", os.Getenv("STOREFRONT_EMAIL"), "sign in with this email when no session is stored")
	root.PersistentFlags().StringVar(&a.password, "password", os.Getenv("STOREFRONT_PASSWORD"), "password for --email")

	root.AddCommand(
		newSignInCmd(a),
		newSignOutCmd(a),
		newProductsCmd(a),
		newProductCmd(a),
		newFavoritesCmd(a),
		newFavoriteCmd(a),
		newCartCmd(a),
		newCheckoutCmd(a),
		newOrdersCmd(a),
		newImportCmd(a),
		newCSVTemplateCmd(),
		newDashboardCmd(a),
		newStatusCmd(a),
		newSandboxCmd(),
	)
	return root
}

// open builds the SDK once per run. With auth set it signs in with
// --email/--password when the stored session is empty.
func (a *app) open(ctx context.Context, auth bool) (*storefront_sdk.SDK, error) {
	if a.sdk == nil {
		sdk, err := storefront_sdk.New(a.cfg, storefront_sdk.WithNotifier(gateway.NotifierFunc(func(n gateway.Notification) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", n.Level, n.Message)
		})))
		if err != nil {
			return nil, err
		}
		a.sdk = sdk
	}
	if !auth || a.sdk.Session().SignedIn() {
		return a.sdk, nil
	}
	if a.email == "" {
		return nil, fmt.Errorf("not signed in: run `storefront sign-in` or pass --email and --password")
	}
	if _, err := a.sdk.SignIn(ctx, a.email, a.password); err != nil {
		return nil, err
	}
	return a.sdk, nil
}
