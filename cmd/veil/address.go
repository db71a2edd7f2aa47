package main

import (
	"github.com/urfave/cli/v2"
)

var namespaceFlag = cli.StringFlag{
	Name:  "namespace",
	Usage: "the address family: stealth or trading",
	Value: "stealth",
}

var addressCmd = cli.Command{
	Name:   "address",
	Usage:  "manage the derived addresses of the wallet",
	Subcommands: []*cli.Command{
		{
			Name:   "new",
			Usage:  "derive the next unused address",
			Action: newAddressAction,
			Flags:  []cli.Flag{&namespaceFlag},
		},
		{
			Name:   "list",
			Usage:  "list the derived addresses",
			Action: listAddressesAction,
			Flags:  []cli.Flag{&namespaceFlag},
		},
	},
}

func newAddressAction(ctx *cli.Context) error {
	var reply map[string]interface{}
	if err := postJSON("/v1/addresses", map[string]string{
		"namespace": ctx.String("namespace"),
	}, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}

func listAddressesAction(ctx *cli.Context) error {
	var reply map[string]interface{}
	apiPath := "/v1/addresses?namespace=" + ctx.String("namespace")
	if err := getJSON(apiPath, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}
