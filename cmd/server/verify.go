package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ons/internal/domains/models"
	"ons/internal/domains/verify"
)

type verifyOutput struct {
	TxHash  string         `json:"tx_hash"`
	Intent  models.Intent  `json:"intent"`
	Domain  string         `json:"domain"`
	Address string         `json:"address"`
	Outcome verify.Outcome `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// verifyCommand checks one transaction against the protocol without touching the store.
func verifyCommand() *cobra.Command {
	var domain, address string
	cmd := &cobra.Command{
		Use:   "verify <tx_hash>",
		Short: "Verify a registration or deletion transaction against the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d := newDeps(cfg)
			client := d.chainClient()
			txHash := args[0]

			tx, err := client.GetTransaction(ctx, txHash)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", txHash, err)
			}
			intent, name, ok := models.ParseIntent(tx.Message)
			if !ok {
				return fmt.Errorf("transaction %s carries no domain intent (message %q)", txHash, tx.Message)
			}
			if domain != "" {
				name = domain
			}
			if name, err = models.ParseName(name); err != nil {
				return err
			}
			if address == "" {
				address = tx.From
			}

			verifier := verify.New(client, d.protocol())
			var result verify.Result
			if intent == models.IntentDelete {
				result = verifier.CheckDeletion(ctx, txHash, name, address)
			} else {
				result = verifier.CheckRegistration(ctx, txHash, name, address)
			}

			out := verifyOutput{
				TxHash:  txHash,
				Intent:  intent,
				Domain:  name,
				Address: address,
				Outcome: result.Outcome,
				Reason:  result.Reason,
			}
			if result.Err != nil {
				out.Error = result.Err.Error()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "domain to check the message against (defaults to the one in the message)")
	cmd.Flags().StringVar(&address, "address", "", "claimant or owner address (defaults to the sender)")
	return cmd
}
