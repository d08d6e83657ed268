package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"santa/internal/models"
	"santa/internal/services"
)

const cliTenant = "cli"

var (
	drawContacts     string
	drawTemplate     string
	drawTemplateFile string
	drawSend         bool
	drawAPIKey       string
)

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Run a draw from a contacts file",
	Long: `Run a draw from a "name;phone;gift[;ignore]" contacts file and print the messages.
With --send every active participant is notified by SMS.`,
	RunE: runDraw,
}

func init() {
	drawCmd.Flags().StringVar(&drawContacts, "contacts", "", "contacts file, - for stdin")
	drawCmd.Flags().StringVar(&drawTemplate, "template", "", "message template ({NOME}, {AMIGO}, {PRESENTE})")
	drawCmd.Flags().StringVar(&drawTemplateFile, "template-file", "", "read the message template from a file")
	drawCmd.Flags().BoolVar(&drawSend, "send", false, "send the messages instead of previewing them")
	drawCmd.Flags().StringVar(&drawAPIKey, "api-key", "", "SMS API key (defaults to sms.api_key)")
	_ = drawCmd.MarkFlagRequired("contacts")
}

func runDraw(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logging.Verbose = false
	l, err := initLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer l.Close()

	template, err := readTemplate()
	if err != nil {
		return err
	}

	in, err := openContacts(cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer in.Close()

	santaService := newSantaService(cfg)
	report, err := santaService.ImportContacts(cliTenant, in)
	if err != nil {
		return err
	}
	if report.Skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d lines skipped\n", report.Skipped)
	}

	if !drawSend {
		outcome, err := santaService.Preview(cliTenant, template)
		if err != nil {
			return explain(cmd.ErrOrStderr(), santaService, err)
		}
		printPreviews(cmd.OutOrStdout(), outcome.Previews)
		return nil
	}

	apiKey := drawAPIKey
	if apiKey == "" {
		apiKey = cfg.SMS.APIKey
	}
	sendReport, err := santaService.Send(context.Background(), cliTenant, apiKey, template)
	if err != nil {
		return explain(cmd.ErrOrStderr(), santaService, err)
	}
	printResults(cmd.OutOrStdout(), sendReport)
	return nil
}

func readTemplate() (string, error) {
	if drawTemplateFile == "" {
		return drawTemplate, nil
	}
	data, err := os.ReadFile(drawTemplateFile)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func openContacts(stdin io.Reader) (io.ReadCloser, error) {
	if drawContacts == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(drawContacts)
	if err != nil {
		return nil, fmt.Errorf("failed to open contacts: %w", err)
	}
	return f, nil
}

// explain lists the invalid participants when the draw was refused because of them.
func explain(w io.Writer, s *services.SantaService, err error) error {
	if !errors.Is(err, services.ErrInvalidParticipants) {
		return err
	}
	for _, p := range s.GetParticipants(cliTenant) {
		if !p.IsValid && !p.Ignore {
			fmt.Fprintf(w, "  %s: %s\n", p.Name, p.ValidationMessage)
		}
	}
	return err
}

func printPreviews(w io.Writer, previews []models.Preview) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Phone", "Message", "Chars", "SMS"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, p := range previews {
		name := p.Name
		if p.Ignored {
			name = color.Gray.Sprint(name + " (ignored)")
		}
		table.Append([]string{name, p.Phone, p.Message, strconv.Itoa(p.CharacterCount), strconv.Itoa(p.SegmentCount)})
	}
	table.Render()
}

func printResults(w io.Writer, report *services.SendReport) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Phone", "Status", "Error"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range report.Results {
		status := color.Green.Sprint(r.Status)
		if !r.Success {
			status = color.Red.Sprint(r.Status)
		}
		table.Append([]string{r.RecipientName, r.PhoneNumber, status, r.ErrorMessage})
	}
	table.SetFooter([]string{"", "", "", fmt.Sprintf("total %d, sent %d, errors %d, ignored %d",
		report.Summary.Total, report.Summary.Sent, report.Summary.Errors, report.Summary.Ignored)})
	table.Render()
}
