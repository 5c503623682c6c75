package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/agentward/internal/config"
	"github.com/ppiankov/agentward/internal/model"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Scan text for threats and secrets",
	Long:  "Runs the content inspector over the given text (or stdin when no\nargument is given) and prints the findings as JSON. Dry-run only:\nnothing is counted, recorded, or forwarded.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	scanner, err := buildScanner(cfg)
	if err != nil {
		return err
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		raw, err := io.ReadAll(io.LimitReader(os.Stdin, 4<<20))
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(raw)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to scan")
	}

	threats := scanner.ScanForThreats(text)
	secrets := scanner.ScanAndRedactSecrets(text)

	report := struct {
		Safe     bool                `json:"safe"`
		Threats  []model.Threat      `json:"threats,omitempty"`
		Secrets  []model.SecretMatch `json:"secrets,omitempty"`
		Redacted string              `json:"redacted,omitempty"`
	}{
		Safe:    threats.Safe && len(secrets.SecretsFound) == 0,
		Threats: threats.Threats,
		Secrets: secrets.SecretsFound,
	}
	if len(secrets.SecretsFound) > 0 {
		report.Redacted = secrets.Redacted
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !report.Safe {
		os.Exit(1)
	}
	return nil
}
