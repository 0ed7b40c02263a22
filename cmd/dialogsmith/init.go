package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
)

const sampleCSV = `ID,Speaker,TextPool,PlayerChoices,Effects,Emotion,Audio
1,Anna,"3*Evening, stranger.|You again.",➔2,-,Happy,-
2,Player,-,Ask about the ship ➔3 [HasFlag('Ship')]|Ask about the harbor ➔4 {SetFlag('Ship')}|Leave ➔,-,Neutral,-
3,Anna,She sails at dawn.,➔5,AddSanity(-5),Worried,-
4,Anna,The harbor master knows about the ship.,➔2,Reputation += 1,Thoughtful,-
5,Anna,Safe travels.,-,-,Neutral,-
`

func initCmd() *cobra.Command {
	var projectName string
	var csvPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new dialogsmith project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName, csvPath)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&csvPath, "csv", "dialogue.csv", "Dialogue CSV to create")
	return cmd
}

func runInit(projectName, csvPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := os.WriteFile(configPath, []byte(config.Template(projectName, csvPath)), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", configPath)

	if _, err := os.Stat(csvPath); err == nil {
		fmt.Fprintf(os.Stdout, "Keeping existing %s\n", csvPath)
		return nil
	}
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", csvPath, err)
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", csvPath)
	return nil
}
