package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/GuildPay/internal/pkg/catalog"
	"github.com/ManuelReschke/GuildPay/internal/pkg/money"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage servers, payout wallets and products",
	}
	cmd.AddCommand(walletAddCmd())
	cmd.AddCommand(walletListCmd())
	cmd.AddCommand(productCreateCmd())
	cmd.AddCommand(productUpdateCmd())
	cmd.AddCommand(productListCmd())
	return cmd
}

// withCatalog opens the database for one catalog command.
func withCatalog(cmd *cobra.Command, fn func(svc *catalog.Service) (any, error)) error {
	rt, err := newRuntime(cmd.Context(), runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := fn(catalog.NewService(rt.ledger))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func walletAddCmd() *cobra.Command {
	var in catalog.WalletInput
	cmd := &cobra.Command{
		Use:   "wallet-add",
		Short: "Register a payout wallet for a Discord server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(svc *catalog.Service) (any, error) {
				return svc.AddWallet(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().StringVar(&in.GuildID, "guild", "", "Discord guild id")
	cmd.Flags().StringVar(&in.ServerName, "server-name", "", "server name, stored on first use")
	cmd.Flags().StringVar(&in.Label, "label", "", "wallet label")
	cmd.Flags().StringVar(&in.Chain, "chain", "", "payout chain, e.g. POLYGON")
	cmd.Flags().StringVar(&in.Asset, "asset", "", "payout asset, e.g. USDC")
	cmd.Flags().StringVar(&in.Address, "address", "", "wallet address")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("chain")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func walletListCmd() *cobra.Command {
	var guildID string
	cmd := &cobra.Command{
		Use:   "wallet-list",
		Short: "List the payout wallets of a Discord server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(svc *catalog.Service) (any, error) {
				return svc.ListWallets(cmd.Context(), guildID)
			})
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Discord guild id")
	_ = cmd.MarkFlagRequired("guild")
	return cmd
}

func productCreateCmd() *cobra.Command {
	var (
		in         catalog.ProductInput
		priceUSD   string
		priceCents int64
	)
	cmd := &cobra.Command{
		Use:   "product-create",
		Short: "Create a product priced in USD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := resolvePrice(priceUSD, priceCents)
			if err != nil {
				return err
			}
			if cents == nil {
				return errors.New("one of --price-usd or --price-cents is required")
			}
			in.PriceMinor = *cents
			return withCatalog(cmd, func(svc *catalog.Service) (any, error) {
				return svc.CreateProduct(cmd.Context(), in)
			})
		},
	}
	cmd.Flags().StringVar(&in.GuildID, "guild", "", "Discord guild id")
	cmd.Flags().StringVar(&in.Name, "name", "", "product name")
	cmd.Flags().StringVar(&priceUSD, "price-usd", "", "price in dollars, e.g. 12.99")
	cmd.Flags().Int64Var(&priceCents, "price-cents", 0, "price in cents")
	cmd.Flags().StringVar(&in.RoleID, "role", "", "Discord role id granted on purchase")
	cmd.Flags().StringVar(&in.WalletID, "wallet", "", "payout wallet id (defaults to the server's first wallet)")
	cmd.MarkFlagsMutuallyExclusive("price-usd", "price-cents")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func productUpdateCmd() *cobra.Command {
	var (
		priceUSD   string
		priceCents int64
		role       string
		active     bool
	)
	cmd := &cobra.Command{
		Use:   "product-update <product-id>",
		Short: "Change the price, role or active flag of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd catalog.ProductUpdate
			cents, err := resolvePrice(priceUSD, priceCents)
			if err != nil {
				return err
			}
			upd.PriceMinor = cents
			if cmd.Flags().Changed("role") {
				upd.RoleID = &role
			}
			if cmd.Flags().Changed("active") {
				upd.Active = &active
			}
			if upd.PriceMinor == nil && upd.RoleID == nil && upd.Active == nil {
				return errors.New("nothing to update")
			}
			return withCatalog(cmd, func(svc *catalog.Service) (any, error) {
				return svc.UpdateProduct(cmd.Context(), args[0], upd)
			})
		},
	}
	cmd.Flags().StringVar(&priceUSD, "price-usd", "", "new price in dollars")
	cmd.Flags().Int64Var(&priceCents, "price-cents", 0, "new price in cents")
	cmd.Flags().StringVar(&role, "role", "", "Discord role id, empty to remove")
	cmd.Flags().BoolVar(&active, "active", true, "whether the product can be bought")
	cmd.MarkFlagsMutuallyExclusive("price-usd", "price-cents")
	return cmd
}

func productListCmd() *cobra.Command {
	var guildID string
	cmd := &cobra.Command{
		Use:   "product-list",
		Short: "List the products of a Discord server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, func(svc *catalog.Service) (any, error) {
				return svc.ListProducts(cmd.Context(), guildID)
			})
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Discord guild id")
	_ = cmd.MarkFlagRequired("guild")
	return cmd
}

// resolvePrice returns nil when neither price flag is set.
func resolvePrice(usd string, cents int64) (*int64, error) {
	switch {
	case usd != "":
		v, err := money.DollarsToCents(usd)
		if err != nil {
			return nil, fmt.Errorf("--price-usd: %w", err)
		}
		return &v, nil
	case cents != 0:
		if cents < 0 {
			return nil, errors.New("--price-cents must be positive")
		}
		return &cents, nil
	}
	return nil, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
