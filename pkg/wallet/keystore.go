package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/trantorian/nftminter/pkg/mint"
)

const KeystoreFileName = "keystore.db"

var (
	accountsBucket = []byte("accounts") // address => cbor(accountRecord)
	metaBucket     = []byte("meta")

	isEncryptedKeyName   = []byte("isEncrypted")
	passwordCheckKeyName = []byte("passwordCheck")
	passwordCheckValue   = []byte("nftminter keystore")
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account does not exist")
)

type (
	/*
	Keystore keeps the Algorand accounts of the user in a bolt database.
	When created with password the private keys are encrypted.
	*/
	Keystore struct {
		db        *bolt.DB
		password  string
		encrypted bool
	}

	accountRecord struct {
		Name    string `cbor:"name"`
		Address string `cbor:"address"`
		// ed25519 private key, encrypted when the keystore is password protected
		Key     []byte `cbor:"key"`
		Created int64  `cbor:"created"`
	}
)

// CreateKeystore creates new keystore file in the directory "dir".
func CreateKeystore(dir, password string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil { // -rwx------
		return nil, fmt.Errorf("creating keystore directory: %w", err)
	}
	return openKeystore(filepath.Join(dir, KeystoreFileName), password, true)
}

// OpenKeystore opens existing keystore in the directory "dir".
func OpenKeystore(dir, password string) (*Keystore, error) {
	return openKeystore(filepath.Join(dir, KeystoreFileName), password, false)
}

func openKeystore(dbFile, password string, create bool) (*Keystore, error) {
	_, err := os.Stat(dbFile)
	exists := err == nil
	if create && exists {
		return nil, fmt.Errorf("cannot create keystore, file (%s) already exists", dbFile)
	} else if !create && !exists {
		return nil, fmt.Errorf("cannot open keystore, file (%s) does not exist", dbFile)
	}

	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: 3 * time.Second}) // -rw-------
	if err != nil {
		return nil, fmt.Errorf("opening keystore db: %w", err)
	}
	ks := &Keystore{db: db, password: password}
	if create {
		err = ks.init()
	} else {
		err = ks.verifyPassword()
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return ks, nil
}

func (ks *Keystore) init() error {
	ks.encrypted = ks.password != ""
	return ks.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{accountsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}
		meta := tx.Bucket(metaBucket)
		if !ks.encrypted {
			return meta.Put(isEncryptedKeyName, []byte{0x00})
		}
		check, err := encrypt(ks.password, passwordCheckValue)
		if err != nil {
			return err
		}
		if err := meta.Put(passwordCheckKeyName, []byte(check)); err != nil {
			return err
		}
		return meta.Put(isEncryptedKeyName, []byte{0x01})
	})
}

func (ks *Keystore) verifyPassword() error {
	return ks.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil || tx.Bucket(accountsBucket) == nil {
			return errors.New("invalid keystore file, buckets not found")
		}
		ks.encrypted = bytes.Equal(meta.Get(isEncryptedKeyName), []byte{0x01})
		if !ks.encrypted {
			return nil
		}
		v, err := decrypt(ks.password, string(meta.Get(passwordCheckKeyName)))
		if err != nil || !bytes.Equal(v, passwordCheckValue) {
			return ErrInvalidPassword
		}
		return nil
	})
}

func (ks *Keystore) Close() error {
	if err := ks.db.Close(); err != nil {
		return fmt.Errorf("closing keystore db: %w", err)
	}
	return nil
}

func (ks *Keystore) IsEncrypted() bool {
	return ks.encrypted
}

/*
CreateAccount generates new account and returns it together with the 25 word
mnemonic of its private key. The mnemonic is the only way to restore the
account when the keystore is lost.
*/
func (ks *Keystore) CreateAccount(name string) (mint.Account, string, error) {
	acc := crypto.GenerateAccount()
	phrase, err := mnemonic.FromPrivateKey(acc.PrivateKey)
	if err != nil {
		return mint.Account{}, "", fmt.Errorf("creating mnemonic: %w", err)
	}
	a, err := ks.addAccount(name, acc)
	if err != nil {
		return mint.Account{}, "", err
	}
	return a, phrase, nil
}

// ImportAccount adds account restored from the mnemonic.
func (ks *Keystore) ImportAccount(name, phrase string) (mint.Account, error) {
	sk, err := mnemonic.ToPrivateKey(phrase)
	if err != nil {
		return mint.Account{}, fmt.Errorf("invalid mnemonic: %w", err)
	}
	acc, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return mint.Account{}, fmt.Errorf("restoring account: %w", err)
	}
	return ks.addAccount(name, acc)
}

func (ks *Keystore) addAccount(name string, acc crypto.Account) (mint.Account, error) {
	rec := &accountRecord{
		Name:    name,
		Address: acc.Address.String(),
		Key:     acc.PrivateKey,
		Created: time.Now().Unix(),
	}
	if ks.encrypted {
		key, err := encrypt(ks.password, acc.PrivateKey)
		if err != nil {
			return mint.Account{}, fmt.Errorf("encrypting private key: %w", err)
		}
		rec.Key = []byte(key)
	}

	err := ks.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		if b.Get([]byte(rec.Address)) != nil {
			return fmt.Errorf("%w: %s", ErrAccountExists, rec.Address)
		}
		names := map[string]struct{}{}
		if err := b.ForEach(func(k, v []byte) error {
			other, err := decodeRecord(v)
			if err != nil {
				return err
			}
			names[other.Name] = struct{}{}
			return nil
		}); err != nil {
			return err
		}
		if rec.Name == "" {
			rec.Name = fmt.Sprintf("account-%d", len(names)+1)
		}
		if _, ok := names[rec.Name]; ok {
			return fmt.Errorf("%w: name %q is taken", ErrAccountExists, rec.Name)
		}
		v, err := cbor.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding account record: %w", err)
		}
		return b.Put([]byte(rec.Address), v)
	})
	if err != nil {
		return mint.Account{}, err
	}
	return mint.Account{Address: rec.Address, Name: rec.Name}, nil
}

// Accounts returns all the accounts in the keystore, ordered by address.
func (ks *Keystore) Accounts() ([]mint.Account, error) {
	var accounts []mint.Account
	err := ks.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			accounts = append(accounts, mint.Account{Address: rec.Address, Name: rec.Name})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (ks *Keystore) privateKey(address string) (ed25519.PrivateKey, error) {
	var rec *accountRecord
	err := ks.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(accountsBucket).Get([]byte(address))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, address)
		}
		var err error
		rec, err = decodeRecord(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ks.encrypted {
		return rec.Key, nil
	}
	key, err := decrypt(ks.password, string(rec.Key))
	if err != nil {
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length %d", len(key))
	}
	return key, nil
}

func decodeRecord(v []byte) (*accountRecord, error) {
	rec := &accountRecord{}
	if err := cbor.Unmarshal(v, rec); err != nil {
		return nil, fmt.Errorf("decoding account record: %w", err)
	}
	return rec, nil
}
