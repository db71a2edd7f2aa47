package main

import (
	"net/url"

	"github.com/urfave/cli/v2"
)

var balanceCmd = cli.Command{
	Name:   "balance",
	Usage:  "get the public and shielded balance of an address",
	Action: balanceAction,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "address",
			Usage: "the address to check, defaults to the daemon wallet",
		},
		&cli.StringFlag{
			Name:  "mint",
			Usage: "the token mint, defaults to the native token",
		},
	},
}

func balanceAction(ctx *cli.Context) error {
	query := url.Values{}
	if address := ctx.String("address"); address != "" {
		query.Set("address", address)
	}
	if mint := ctx.String("mint"); mint != "" {
		query.Set("mint", mint)
	}

	apiPath := "/v1/balance"
	if encoded := query.Encode(); encoded != "" {
		apiPath += "?" + encoded
	}

	var reply map[string]interface{}
	if err := getJSON(apiPath, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}
