// cmd/ccardctl/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/tamzrod/ccard-deploy/internal/command"
	"github.com/tamzrod/ccard-deploy/internal/config"
	"github.com/tamzrod/ccard-deploy/internal/dsa"
	"github.com/tamzrod/ccard-deploy/internal/logging"
)

func main() {
	log := logging.New("ccardctl")

	app := &cli.App{
		Name:  "ccardctl",
		Usage: "query and command the C Card deployment controller",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Aliases: []string{"e"},
				Value:   config.DefaultListen,
				Usage:   "query channel address",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 2 * time.Second,
				Usage: "timeout for status queries",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ping",
				Usage:  "liveness check",
				Action: ping,
			},
			{
				Name:   "status",
				Usage:  "show DSA status bits",
				Action: status,
			},
			dsaCommand("release", dsa.Release),
			dsaCommand("deploy", dsa.Deploy),
			dsaCommand("reset", dsa.Reset),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func client(c *cli.Context) (*command.Client, error) {
	return command.NewClient(command.ClientConfig{
		Endpoint: c.String("endpoint"),
		Timeout:  c.Duration("timeout"),
	})
}

func ping(c *cli.Context) error {
	cl, err := client(c)
	if err != nil {
		return err
	}
	if err := cl.Ping(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "alive")
	return nil
}

func status(c *cli.Context) error {
	cl, err := client(c)
	if err != nil {
		return err
	}
	reg, busy, err := cl.DsaStatus()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "DSA_1 released=%t deployed=%t\n", reg.DSA1Released, reg.DSA1Deployed)
	fmt.Fprintf(c.App.Writer, "DSA_2 released=%t deployed=%t\n", reg.DSA2Released, reg.DSA2Deployed)
	fmt.Fprintf(c.App.Writer, "busy=%t\n", busy)
	return nil
}

func dsaCommand(name string, cmd dsa.Command) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     "manual " + name + " of one appendage (overrides the sequence)",
		ArgsUsage: "<1|2>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "cmd-timeout",
				Usage: "confirmation timeout (0 = controller default)",
			},
		},
		Action: func(c *cli.Context) error {
			id, err := parseAppendage(c.Args().First())
			if err != nil {
				return err
			}
			cl, err := client(c)
			if err != nil {
				return err
			}
			st, err := cl.DsaCommand(id, cmd, c.Duration("cmd-timeout"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s %s: %s\n", name, id, st)
			if st != dsa.StatusOk {
				return cli.Exit("", 2)
			}
			return nil
		},
	}
}

func parseAppendage(s string) (dsa.AppendageID, error) {
	switch s {
	case "1":
		return dsa.DSA1, nil
	case "2":
		return dsa.DSA2, nil
	}
	return dsa.Unknown, errors.Errorf("appendage must be 1 or 2, got %q", s)
}
