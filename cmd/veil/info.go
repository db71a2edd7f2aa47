package main

import (
	"github.com/urfave/cli/v2"
)

var infoCmd = cli.Command{
	Name:   "info",
	Usage:  "print the daemon wallet info",
	Action: infoAction,
}

func infoAction(ctx *cli.Context) error {
	var reply map[string]interface{}
	if err := getJSON("/v1/info", &reply); err != nil {
		return err
	}

	printRespJSON(reply)

	return nil
}
