package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var (
	veilDataDir = btcutil.AppDataDir("veil", false)
	statePath   = path.Join(veilDataDir, "state.json")

	httpClient = &http.Client{Timeout: 5 * time.Minute}
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "veil CLI"
	app.Usage = "Command line interface for veild daemon users"
	app.Commands = append(
		app.Commands,
		&configCmd,
		&infoCmd,
		&balanceCmd,
		&addressCmd,
		&shieldCmd,
		&unshieldCmd,
		&sendCmd,
		&swapCmd,
		&operationsCmd,
	)

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[veil] %v\n", err)
	os.Exit(1)
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	json.Unmarshal(file, &data)

	return data, nil
}

func setState(data map[string]string) error {
	if _, err := os.Stat(veilDataDir); os.IsNotExist(err) {
		os.Mkdir(veilDataDir, os.ModeDir|0755)
	}

	file, err := os.OpenFile(statePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	currentData, _ := getState()
	if currentData == nil {
		currentData = map[string]string{}
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0644); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merged := make(map[string]string, 0)
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

func daemonURL(apiPath string) (string, error) {
	state, err := getState()
	if err != nil {
		return "", err
	}
	rpcserver, ok := state["rpcserver"]
	if !ok {
		return "", errors.New("set daemon address with `config init`")
	}
	return "http://" + rpcserver + apiPath, nil
}

func getJSON(apiPath string, out interface{}) error {
	url, err := daemonURL(apiPath)
	if err != nil {
		return err
	}
	resp, err := httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeReply(resp, out)
}

func postJSON(apiPath string, body, out interface{}) error {
	url, err := daemonURL(apiPath)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeReply(resp, out)
}

func decodeReply(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var reply struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &reply) == nil && reply.Error != "" {
			return errors.New(reply.Error)
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}

func printRespJSON(resp interface{}) {
	jsonStr, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}

	fmt.Println(string(jsonStr))
}
