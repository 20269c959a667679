package tracker

import (
	"github.com/travigo/shuttletrack/pkg/config"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "settings",
			Usage: "optional YAML settings file",
		},
		&cli.StringFlag{
			Name:  "config-url",
			Usage: "URL of the remote config document, overrides settings",
		},
	}

	return &cli.Command{
		Name:  "dashboard",
		Usage: "Live shuttle tracking dashboard",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the dashboard until interrupted",
				Flags: append(flags, &cli.StringFlag{
					Name:  "listen",
					Usage: "listen target for the status API, overrides settings",
				}),
				Action: func(c *cli.Context) error {
					settings, err := loadSettings(c)
					if err != nil {
						return err
					}
					if listen := c.String("listen"); listen != "" {
						settings.Listen = listen
					}

					return Run(c.Context, settings)
				},
			},
			{
				Name:  "inspect",
				Usage: "fetch the current shuttle state once and print it",
				Flags: flags,
				Action: func(c *cli.Context) error {
					settings, err := loadSettings(c)
					if err != nil {
						return err
					}

					return Inspect(c.Context, settings)
				},
			},
			{
				Name:  "tail",
				Usage: "follow the shuttle positions published to the redis location queue",
				Flags: flags,
				Action: func(c *cli.Context) error {
					settings, err := loadSettings(c)
					if err != nil {
						return err
					}

					return Tail(c.Context, settings)
				},
			},
		},
	}
}

func loadSettings(c *cli.Context) (config.Settings, error) {
	settings, err := config.LoadSettings(c.String("settings"))
	if err != nil {
		return settings, err
	}

	if configURL := c.String("config-url"); configURL != "" {
		settings.ConfigURL = configURL
	}

	return settings, settings.Validate()
}
