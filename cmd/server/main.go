package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/payslip-server/internal/config"
	"github.com/jrsteele09/payslip-server/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "payslip-server",
	Short: "Send payslips as a signed-in Microsoft 365 user",
	Long: `payslip-server signs payroll staff in with Microsoft Entra ID, keeps a
server-side session behind an HTTP-only cookie and emails payslips on their
behalf, logging every attempt.`,
	SilenceUsage: true,
	// Running without a subcommand serves
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd, purgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the optional dotenv file, then the environment, and sets
// up logging.
func loadConfig() (config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "loading %s", envFile)
		}
	}
	c, err := config.New()
	if err != nil {
		return nil, err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	return c, nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
