// Package bitnamescli is a command line client for the sidechain gateway.
package bitnamescli

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/services/gateway"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type utxoView struct {
	OutPoint     string `json:"outpoint"`
	Address      string `json:"address"`
	Value        uint64 `json:"value"`
	BitNameKey   string `json:"bitnameKey,omitempty"`
	BitNameValue string `json:"bitnameValue,omitempty"`
}

// NewApp returns the cli application. Output is written to w.
func NewApp(w io.Writer, version string) *cli.App {
	return &cli.App{
		Name:      "bitnames-cli",
		Usage:     "talk to a bitnames sidechain node",
		Version:   version,
		Writer:    w,
		ErrWriter: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "gateway grpc address, defaults to the gateway_grpcAddress setting",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "dotenv file with settings, variables already in the environment win",
				Value: cli.NewStringSlice(".env"),
			},
		},
		Before: func(c *cli.Context) error {
			return settings.LoadEnvFiles(c.StringSlice("env-file")...)
		},
		Commands: []*cli.Command{
			{
				Name:      "submit",
				Usage:     "submit a hex encoded transaction",
				ArgsUsage: "<hex>",
				Action:    submit,
			},
			{
				Name:  "send",
				Usage: "build a transaction from outpoints and outputs and submit it",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "input", Usage: "spent outpoint as txid:vout", Required: true},
					&cli.StringSliceFlag{Name: "output", Usage: "value output as address:value"},
					&cli.StringSliceFlag{Name: "register", Usage: "bitname registration as address:name=value"},
					&cli.BoolFlag{Name: "dry-run", Usage: "print the transaction without submitting it"},
				},
				Action: send,
			},
			{
				Name:  "attempt-bmm",
				Usage: "start a blind merged mining attempt",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "amount", Usage: "bid in satoshis", Required: true},
				},
				Action: attemptBmm,
			},
			{
				Name:   "confirm-bmm",
				Usage:  "report whether the current attempt is connected",
				Action: confirmBmm,
			},
			{
				Name:      "utxos",
				Usage:     "list the unspent outputs of base58 addresses",
				ArgsUsage: "<address>...",
				Action:    utxos,
			},
			{
				Name:   "health",
				Usage:  "check that the gateway is serving",
				Action: healthCheck,
			},
			{
				Name:   "settings",
				Usage:  "print the settings in effect",
				Action: printSettings,
			},
		},
	}
}

// Start runs the cli with args, the program name excluded, and exits on failure.
func Start(args []string, version string) {
	app := NewApp(os.Stdout, version)

	if err := app.Run(append([]string{app.Name}, args...)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(c *cli.Context) (*gateway.Client, error) {
	tSettings := settings.NewSettings()

	if address := c.String("gateway"); address != "" {
		tSettings.Gateway.GRPCAddress = address
	}

	return gateway.NewClient(c.Context, ulogger.New("cli", ulogger.WithLevel("ERROR")), tSettings)
}

func submit(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.NewInvalidArgumentError("submit takes exactly one hex encoded transaction")
	}

	txBytes, err := hex.DecodeString(strings.TrimSpace(c.Args().First()))
	if err != nil {
		return errors.NewInvalidArgumentError("transaction is not valid hex", err)
	}

	return submitBytes(c, txBytes)
}

func submitBytes(c *cli.Context, txBytes []byte) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.SubmitTransaction(c.Context, txBytes)
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, result)
}

func send(c *cli.Context) error {
	tx, err := buildTransaction(c.StringSlice("input"), c.StringSlice("output"), c.StringSlice("register"))
	if err != nil {
		return err
	}

	if c.Bool("dry-run") {
		return writeJSON(c.App.Writer, map[string]string{
			"txid": tx.TxID().String(),
			"hex":  hex.EncodeToString(tx.Bytes()),
		})
	}

	return submitBytes(c, tx.Bytes())
}

func attemptBmm(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	if err = client.AttemptBmm(c.Context, c.Uint64("amount")); err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, "attempt started")

	return err
}

func confirmBmm(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	connected, err := client.ConfirmBmm(c.Context)
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, map[string]bool{"connected": connected})
}

func utxos(c *cli.Context) error {
	addresses := make([]model.Address, 0, c.NArg())

	for _, arg := range c.Args().Slice() {
		address, err := model.NewAddressFromString(arg)
		if err != nil {
			return err
		}

		addresses = append(addresses, address)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.GetUtxosByAddresses(c.Context, addresses)
	if err != nil {
		return err
	}

	return writeJSON(c.App.Writer, utxoViews(result))
}

func healthCheck(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	status, details, err := client.Health(c.Context, false)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.App.Writer, "%d %s\n", status, details)

	return err
}

func printSettings(c *cli.Context) error {
	return writeJSON(c.App.Writer, settings.NewSettings())
}

func utxoViews(utxos []*model.Utxo) []utxoView {
	views := make([]utxoView, 0, len(utxos))

	for _, utxo := range utxos {
		view := utxoView{
			OutPoint: utxo.OutPoint.String(),
			Address:  utxo.Output.Address.String(),
			Value:    utxo.Output.Value,
		}

		if utxo.Output.IsBitName() {
			view.BitNameKey = utxo.Output.BitName.Key.String()
			view.BitNameValue = utxo.Output.BitName.Value.String()
		}

		views = append(views, view)
	}

	return views
}

// buildTransaction parses inputs (txid:vout), outputs (address:value) and registrations
// (address:name=value). Names and values are hashed into BitName keys and values.
func buildTransaction(inputs, outputs, registrations []string) (*model.Transaction, error) {
	tx := &model.Transaction{}

	for _, s := range inputs {
		outpoint, err := parseOutPoint(s)
		if err != nil {
			return nil, err
		}

		tx.Inputs = append(tx.Inputs, outpoint)
	}

	for _, s := range registrations {
		address, rest, err := splitAddress(s)
		if err != nil {
			return nil, err
		}

		name, value, ok := strings.Cut(rest, "=")
		if !ok || name == "" {
			return nil, errors.NewInvalidArgumentError("registration %q should be address:name=value", s)
		}

		tx.Outputs = append(tx.Outputs, model.NewBitNameOutput(address, chainhash.HashH([]byte(name)), chainhash.HashH([]byte(value))))
	}

	for _, s := range outputs {
		address, rest, err := splitAddress(s)
		if err != nil {
			return nil, err
		}

		value, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("output %q has an invalid value", s, err)
		}

		tx.Outputs = append(tx.Outputs, model.NewValueOutput(address, value))
	}

	if err := tx.CheckStructure(); err != nil {
		return nil, err
	}

	return tx, nil
}

func parseOutPoint(s string) (model.OutPoint, error) {
	txIDStr, voutStr, ok := strings.Cut(s, ":")
	if !ok {
		return model.OutPoint{}, errors.NewInvalidArgumentError("outpoint %q should be txid:vout", s)
	}

	txID, err := chainhash.NewHashFromStr(txIDStr)
	if err != nil {
		return model.OutPoint{}, errors.NewInvalidArgumentError("outpoint %q has an invalid txid", s, err)
	}

	vout, err := strconv.ParseUint(voutStr, 10, 32)
	if err != nil {
		return model.OutPoint{}, errors.NewInvalidArgumentError("outpoint %q has an invalid vout", s, err)
	}

	return model.NewOutPoint(*txID, uint32(vout)), nil
}

func splitAddress(s string) (model.Address, string, error) {
	addressStr, rest, ok := strings.Cut(s, ":")
	if !ok {
		return model.Address{}, "", errors.NewInvalidArgumentError("%q should start with address:", s)
	}

	address, err := model.NewAddressFromString(addressStr)
	if err != nil {
		return model.Address{}, "", err
	}

	return address, rest, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewProcessingError("failed to encode output", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
