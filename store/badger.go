package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/gloworm-vision/lcdpanel/hardware"
)

// Badger is a Store backed by a BadgerDB directory.
type Badger struct {
	db *badger.DB
}

var (
	badgerHardwareKey    = []byte("lcdpanel/hardware")
	badgerDisplayTextKey = []byte("lcdpanel/display-text")
)

// OpenBadger opens (or creates) a BadgerDB in dir. logger may be a
// *logrus.Logger; nil keeps badger's default logger.
func OpenBadger(dir string, logger badger.Logger) (*Badger, error) {
	options := badger.DefaultOptions(dir)
	if logger != nil {
		options = options.WithLogger(logger)
	}

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("unable to open badger db: %w", err)
	}

	return &Badger{db: db}, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func (b *Badger) get(key []byte) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	return value, err
}

func (b *Badger) set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *Badger) HardwareConfig() (hardware.Config, error) {
	var h hardware.Config

	hardwareJSON, err := b.get(badgerHardwareKey)
	if err != nil {
		return h, fmt.Errorf("unable to get hardware config: %w", err)
	}

	if err := json.Unmarshal(hardwareJSON, &h); err != nil {
		return h, fmt.Errorf("unable to unmarshal hardware config JSON: %w", err)
	}

	return h, nil
}

func (b *Badger) PutHardwareConfig(h hardware.Config) error {
	hardwareJSON, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("unable to marshal hardware config: %w", err)
	}

	if err := b.set(badgerHardwareKey, hardwareJSON); err != nil {
		return fmt.Errorf("unable to put hardware config: %w", err)
	}

	return nil
}

func (b *Badger) DisplayText() (string, error) {
	v, err := b.get(badgerDisplayTextKey)
	if err != nil {
		return "", fmt.Errorf("unable to get display text: %w", err)
	}

	return string(v), nil
}

func (b *Badger) PutDisplayText(text string) error {
	if err := b.set(badgerDisplayTextKey, []byte(text)); err != nil {
		return fmt.Errorf("unable to put display text: %w", err)
	}

	return nil
}
