package main

import (
	"errors"

	"github.com/urfave/cli/v2"
)

var unshieldCmd = cli.Command{
	Name:   "unshield",
	Usage:  "move funds out of the shielded pool to a public recipient",
	Action: unshieldAction,
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "amount",
			Usage: "the amount to unshield, in base units",
		},
		&cli.StringFlag{
			Name:  "recipient",
			Usage: "the public recipient address",
		},
		&cli.BoolFlag{
			Name:  "gasless",
			Usage: "let the relay pay the network fee",
		},
	},
}

func unshieldAction(ctx *cli.Context) error {
	amount := ctx.Uint64("amount")
	if amount == 0 {
		return errors.New("amount must be greater than zero")
	}
	recipient := ctx.String("recipient")
	if recipient == "" {
		return errors.New("recipient is missing")
	}

	var reply map[string]interface{}
	if err := postJSON("/v1/unshield", map[string]interface{}{
		"amount":    amount,
		"recipient": recipient,
		"gasless":   ctx.Bool("gasless"),
	}, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}
