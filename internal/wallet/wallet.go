// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet представляет ключ, способный подписывать переводы пула.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[solana.PublicKey]solana.PublicKey // mint -> ATA
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}, nil
}

// GetATA возвращает адрес ассоциированного токен-аккаунта для mint.
// Вычисленные адреса кешируются.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ata, ok := w.ataCache[mint]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if w.ataCache == nil {
		w.ataCache = make(map[solana.PublicKey]solana.PublicKey)
	}
	w.ataCache[mint] = ata
	return ata, nil
}

// String возвращает публичный ключ кошелька.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

// Keyring holds the keys the service may sign with: participant and owner
// authorities, pool custodians and the fee payer.
type Keyring struct {
	byKey  map[solana.PublicKey]*Wallet
	byName map[string]*Wallet
}

// NewKeyring builds a keyring from wallets. Later wallets with the same
// public key replace earlier ones.
func NewKeyring(wallets ...*Wallet) *Keyring {
	k := &Keyring{
		byKey:  make(map[solana.PublicKey]*Wallet),
		byName: make(map[string]*Wallet),
	}
	for _, w := range wallets {
		k.Add(w)
	}
	return k
}

// Add registers w.
func (k *Keyring) Add(w *Wallet) {
	k.byKey[w.PublicKey] = w
	if w.Name != "" {
		k.byName[w.Name] = w
	}
}

// LoadKeyring загружает ключи из CSV-файла с колонками: [Name, PrivateKeyBase58].
// Первая строка считается заголовком.
func LoadKeyring(path string) (*Keyring, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("keyring %s is empty or missing data", path)
	}

	k := NewKeyring()
	for i, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("keyring line %d: expected 2 columns, got %d", i+2, len(record))
		}
		w, err := NewWallet(record[1])
		if err != nil {
			return nil, fmt.Errorf("keyring line %d (%s): %w", i+2, record[0], err)
		}
		w.Name = strings.TrimSpace(record[0])
		k.Add(w)
	}
	return k, nil
}

// Get returns the wallet for pub.
func (k *Keyring) Get(pub solana.PublicKey) (*Wallet, bool) {
	w, ok := k.byKey[pub]
	return w, ok
}

// Resolve accepts either a keyring name or a base58 public key.
func (k *Keyring) Resolve(nameOrKey string) (solana.PublicKey, error) {
	if w, ok := k.byName[nameOrKey]; ok {
		return w.PublicKey, nil
	}
	pub, err := solana.PublicKeyFromBase58(nameOrKey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%q is neither a keyring name nor a public key: %w", nameOrKey, err)
	}
	return pub, nil
}

// Names returns the registered names in sorted order.
func (k *Keyring) Names() []string {
	names := make([]string, 0, len(k.byName))
	for name := range k.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SignTransaction подписывает транзакцию всеми требуемыми ключами из связки.
// Ошибка возвращается, если какого-либо подписанта нет в связке.
func (k *Keyring) SignTransaction(tx *solana.Transaction) error {
	signers := tx.Message.Signers()
	for _, s := range signers {
		if _, ok := k.byKey[s]; !ok {
			return fmt.Errorf("no key for signer %s", s)
		}
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if w, ok := k.byKey[key]; ok {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}
