package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/internal/prompt"
	"github.com/czh0526/tokencore/internal/zero"
	"github.com/czh0526/tokencore/keystore"
	"github.com/czh0526/tokencore/txauthor"
	"github.com/czh0526/tokencore/wallet"
	"io"
	"os"
	"strings"
)

type actionIO struct {
	prompt *prompt.Prompter
	out    io.Writer
}

func newActionIO() *actionIO {
	return &actionIO{prompt: prompt.New(), out: os.Stdout}
}

func (a *actionIO) printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

// runAction performs the single action selected in cfg.
func runAction(w *wallet.Wallet, cfg *config, a *actionIO) error {
	switch {
	case cfg.Create:
		return createKeystore(w, cfg, a)
	case cfg.Import:
		return importMnemonic(w, cfg, a)
	case cfg.ImportKey:
		return importPrivateKey(w, cfg, a)
	case cfg.Derive != "":
		return deriveAccounts(w, cfg, a)
	case cfg.SignTx != "":
		return signTx(w, cfg, a)
	case cfg.List:
		return listKeystores(w, a)
	case cfg.Export:
		return exportSecret(w, cfg, a)
	case cfg.Remove:
		return removeKeystore(w, cfg, a)
	}
	return errors.New("no action given")
}

func newPassword(a *actionIO) ([]byte, wallet.WalletMeta, error) {
	password, err := a.prompt.Password(true)
	if err != nil {
		return nil, wallet.WalletMeta{}, err
	}
	hint, err := a.prompt.Line("Enter a password hint (optional): ")
	if err != nil {
		zero.Bytes(password)
		return nil, wallet.WalletMeta{}, err
	}
	return password, wallet.WalletMeta{PasswordHint: hint}, nil
}

func createKeystore(w *wallet.Wallet, cfg *config, a *actionIO) error {
	password, meta, err := newPassword(a)
	if err != nil {
		return err
	}
	defer zero.Bytes(password)
	meta.Name = cfg.Name

	ks, err := w.CreateHD(password, meta)
	if err != nil {
		return err
	}
	mnemonic, err := w.ExportMnemonic(ks.ID(), password)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Your keystore mnemonic is:")
	fmt.Fprintln(a.out, mnemonic)
	fmt.Fprintln(a.out, "IMPORTANT: Keep the mnemonic in a safe place. It is "+
		"the only way to restore the keystore.")
	fmt.Fprintf(a.out, "Keystore %s created\n", ks.ID())
	return nil
}

func importMnemonic(w *wallet.Wallet, cfg *config, a *actionIO) error {
	mnemonic, err := a.prompt.Mnemonic()
	if err != nil {
		return err
	}
	password, meta, err := newPassword(a)
	if err != nil {
		return err
	}
	defer zero.Bytes(password)
	meta.Name = cfg.Name

	ks, err := w.ImportMnemonic(mnemonic, password, meta)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Keystore %s imported\n", ks.ID())
	return nil
}

func importPrivateKey(w *wallet.Wallet, cfg *config, a *actionIO) error {
	priv, err := a.prompt.PrivateKey()
	if err != nil {
		return err
	}
	password, meta, err := newPassword(a)
	if err != nil {
		return err
	}
	defer zero.Bytes(password)
	meta.Name = cfg.Name

	ks, err := w.ImportPrivateKey(priv, password, meta)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Keystore %s imported\n", ks.ID())
	return nil
}

// parseDeriveList parses COIN[:SEGWIT][,COIN[:SEGWIT]] on network.
func parseDeriveList(list, network string) ([]wallet.DeriveRequest, error) {
	var reqs []wallet.DeriveRequest
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, ":")
		if len(parts) > 2 {
			return nil, fmt.Errorf("invalid coin %q", item)
		}

		req := wallet.DeriveRequest{
			Chain:   strings.ToUpper(parts[0]),
			Network: network,
		}
		if len(parts) == 2 {
			req.SegWit = strings.ToUpper(parts[1])
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 {
		return nil, errors.New("no coin to derive")
	}
	return reqs, nil
}

func deriveAccounts(w *wallet.Wallet, cfg *config, a *actionIO) error {
	reqs, err := parseDeriveList(cfg.Derive, cfg.network())
	if err != nil {
		return err
	}

	password, err := a.prompt.Password(false)
	if err != nil {
		return err
	}
	defer zero.Bytes(password)

	accounts, err := w.DeriveAccounts(cfg.ID, password, reqs)
	if err != nil {
		return err
	}
	return a.printJSON(accounts)
}

func signTx(w *wallet.Wallet, cfg *config, a *actionIO) error {
	b, err := os.ReadFile(cfg.SignTx)
	if err != nil {
		return err
	}

	var req wallet.SignTxRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return fmt.Errorf("%s: %w", cfg.SignTx, err)
	}
	if req.ID == "" {
		req.ID = cfg.ID
	}
	if req.Network == "" {
		req.Network = cfg.network()
	}
	if req.Password == "" {
		password, err := a.prompt.Password(false)
		if err != nil {
			return err
		}
		req.Password = string(password)
		zero.Bytes(password)
	}

	signed, err := w.SignTx(&req)
	if err != nil {
		return err
	}
	return a.printJSON(signed)
}

type keystoreSummary struct {
	ID       string              `json:"id"`
	Meta     keystore.Meta       `json:"meta"`
	Accounts []*keystore.Account `json:"accounts"`
}

func listKeystores(w *wallet.Wallet, a *actionIO) error {
	summaries := []keystoreSummary{}
	for _, ks := range w.List() {
		summaries = append(summaries, keystoreSummary{
			ID:       ks.ID(),
			Meta:     ks.Meta(),
			Accounts: ks.Accounts(),
		})
	}
	return a.printJSON(summaries)
}

func exportSecret(w *wallet.Wallet, cfg *config, a *actionIO) error {
	password, err := a.prompt.Password(false)
	if err != nil {
		return err
	}
	defer zero.Bytes(password)

	secret, err := w.Export(cfg.ID, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, secret)
	return nil
}

func removeKeystore(w *wallet.Wallet, cfg *config, a *actionIO) error {
	ok, err := a.prompt.Bool(fmt.Sprintf("Remove keystore %s?", cfg.ID), false)
	if err != nil || !ok {
		return err
	}

	password, err := a.prompt.Password(false)
	if err != nil {
		return err
	}
	defer zero.Bytes(password)

	if err := w.Remove(cfg.ID, password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Keystore %s removed\n", cfg.ID)
	return nil
}

// describeError prefixes keystore and signing failures with their stable
// code.
func describeError(err error) string {
	if code, ok := keystore.Code(err); ok {
		return fmt.Sprintf("%s: %v", code, err)
	}

	switch {
	case errors.Is(err, txauthor.ErrInsufficientFunds):
		return "insufficient_funds: " + err.Error()
	case errors.Is(err, txauthor.ErrAmountLessThanMinimum):
		return "amount_less_than_minimum: " + err.Error()
	case errors.Is(err, txauthor.ErrInvalidAmount):
		return "invalid_amount: " + err.Error()
	}
	return err.Error()
}
