package main

import (
	"errors"

	"github.com/urfave/cli/v2"
)

var swapFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "input",
		Usage: "the input token mint, 'native' for the native token",
		Value: "native",
	},
	&cli.StringFlag{
		Name:  "output",
		Usage: "the output token mint",
	},
	&cli.Uint64Flag{
		Name:  "amount",
		Usage: "the input amount, in base units",
	},
	&cli.IntFlag{
		Name:  "slippage",
		Usage: "the max accepted slippage, in basis points",
		Value: 50,
	},
}

var swapCmd = cli.Command{
	Name:  "swap",
	Usage: "swap privately through an ephemeral trading wallet",
	Subcommands: []*cli.Command{
		{
			Name:   "quote",
			Usage:  "preview the swap route without executing",
			Action: quoteAction,
			Flags:  swapFlags,
		},
		{
			Name:   "execute",
			Usage:  "execute the swap",
			Action: swapAction,
			Flags:  swapFlags,
		},
	},
}

func swapRequest(ctx *cli.Context) (map[string]interface{}, error) {
	amount := ctx.Uint64("amount")
	if amount == 0 {
		return nil, errors.New("amount must be greater than zero")
	}
	output := ctx.String("output")
	if output == "" {
		return nil, errors.New("output mint is missing")
	}

	return map[string]interface{}{
		"inputMint":   ctx.String("input"),
		"outputMint":  output,
		"amount":      amount,
		"slippageBps": ctx.Int("slippage"),
	}, nil
}

func quoteAction(ctx *cli.Context) error {
	req, err := swapRequest(ctx)
	if err != nil {
		return err
	}

	var reply map[string]interface{}
	if err := postJSON("/v1/quote", req, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}

func swapAction(ctx *cli.Context) error {
	req, err := swapRequest(ctx)
	if err != nil {
		return err
	}

	var reply map[string]interface{}
	if err := postJSON("/v1/swap", req, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}
