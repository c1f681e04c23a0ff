package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/templui/contentops/internal/app"
	"github.com/templui/contentops/internal/logger"
	"github.com/templui/contentops/internal/model"
	"github.com/templui/contentops/internal/validation"
)

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Upload token commands",
	}

	cmd.AddCommand(tokenGenerateCmd())
	cmd.AddCommand(tokenListCmd())
	return cmd
}

func tokenGenerateCmd() *cobra.Command {
	var (
		req      validation.TokenRequest
		kinds    []string
		operator string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create an upload token for an article",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range kinds {
				req.UploadTypes = append(req.UploadTypes, model.UploadKind(strings.TrimSpace(k)))
			}

			cfg := loadConfig()
			defer logger.Flush()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			generated, err := a.UploadTokenService.Generate(cmd.Context(), operator, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, generated)
		},
	}

	cmd.Flags().StringVar(&req.ArticleID, "article", "", "article id the token uploads to")
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "permitted upload types (default: all)")
	cmd.Flags().IntVar(&req.ExpiresInDays, "days", 0, "days until the token expires (default from UPLOAD_TOKEN_EXPIRY_DAYS)")
	cmd.Flags().IntVar(&req.MaxUses, "max-uses", 0, "maximum number of uploads, 0 for unlimited")
	cmd.Flags().StringVar(&req.Name, "name", "", "display label")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "free text notes")
	cmd.Flags().StringVar(&operator, "operator", "", "operator id recorded as creator")
	_ = cmd.MarkFlagRequired("article")
	return cmd
}

func tokenListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <article-id>",
		Short: "List the upload tokens of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			defer logger.Flush()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			tokens, err := a.UploadTokenService.ListByArticle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, tokens)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
