package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var operationsCmd = cli.Command{
	Name:   "operations",
	Usage:  "list the recorded operations of the wallet",
	Action: operationsAction,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "the page number, starting from 1",
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "the number of operations per page",
		},
	},
}

func operationsAction(ctx *cli.Context) error {
	apiPath := "/v1/operations"
	if page := ctx.Int("page"); page > 0 {
		apiPath = fmt.Sprintf(
			"%s?page=%d&size=%d", apiPath, page, ctx.Int("size"),
		)
	}

	var reply map[string]interface{}
	if err := getJSON(apiPath, &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}
