package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/alvarorichard/goanime-resolver/internal/models"
	"github.com/alvarorichard/goanime-resolver/pkg/resolver"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	var showDocs bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List providers in fallback order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := resolver.New(resolver.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			descriptors := client.Providers()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderProviders(descriptors))
			if showDocs {
				for i, d := range descriptors {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%d. %s\n%s\n", i, d.Name, d.Docs)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDocs, "docs", false, "Print each provider's notes")
	return cmd
}

func renderProviders(descriptors []models.ProviderDescriptor) string {
	headers := []string{"#", "Name", "Slug", "Base URL", "Ads", "Embed"}
	rows := lo.Map(descriptors, func(d models.ProviderDescriptor, i int) []string {
		return []string{strconv.Itoa(i), d.Name, d.Slug, d.BaseURL, yesNo(d.HasAds), yesNo(d.IsEmbed)}
	})
	return renderTable(headers, rows, []columnAlignment{alignRight})
}

func yesNo(b bool) string {
	return lo.Ternary(b, "yes", "no")
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range headers {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
