package main

import (
	"errors"

	"github.com/urfave/cli/v2"
)

var sendCmd = cli.Command{
	Name:   "send",
	Usage:  "send funds within the shielded pool",
	Action: sendAction,
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "amount",
			Usage: "the amount to send, in base units",
		},
		&cli.StringFlag{
			Name:  "recipient",
			Usage: "the shielded recipient address",
		},
		&cli.StringFlag{
			Name:  "mint",
			Usage: "the token mint, defaults to the native token",
		},
		&cli.Uint64Flag{
			Name:  "decimals",
			Usage: "the token precision, required along with mint",
			Value: 9,
		},
	},
}

func sendAction(ctx *cli.Context) error {
	amount := ctx.Uint64("amount")
	if amount == 0 {
		return errors.New("amount must be greater than zero")
	}
	recipient := ctx.String("recipient")
	if recipient == "" {
		return errors.New("recipient is missing")
	}

	var reply map[string]interface{}

	if mint := ctx.String("mint"); mint != "" {
		if err := postJSON("/v1/send-token", map[string]interface{}{
			"mint":      mint,
			"decimals":  ctx.Uint64("decimals"),
			"amount":    amount,
			"recipient": recipient,
		}, &reply); err != nil {
			return err
		}
	} else {
		if err := postJSON("/v1/send", map[string]interface{}{
			"amount":    amount,
			"recipient": recipient,
		}, &reply); err != nil {
			return err
		}
	}

	printRespJSON(reply)

	return nil
}
