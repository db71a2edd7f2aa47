package main

import (
	"errors"

	"github.com/urfave/cli/v2"
)

var shieldCmd = cli.Command{
	Name:   "shield",
	Usage:  "move funds from the public balance into the shielded pool",
	Action: shieldAction,
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "amount",
			Usage: "the amount to shield, in base units",
		},
	},
}

func shieldAction(ctx *cli.Context) error {
	amount := ctx.Uint64("amount")
	if amount == 0 {
		return errors.New("amount must be greater than zero")
	}

	var reply map[string]interface{}
	if err := postJSON("/v1/shield", map[string]uint64{
		"amount": amount,
	}, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}
