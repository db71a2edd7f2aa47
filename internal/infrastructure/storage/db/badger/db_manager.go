package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/veil-network/veil-daemon/internal/core/domain"
	"github.com/veil-network/veil-daemon/internal/core/ports"
)

// repoManager holds all the badgerhold stores in a single data structure.
type repoManager struct {
	addressStore   *badgerhold.Store
	operationStore *badgerhold.Store

	addressRepository   domain.AddressRepository
	operationRepository domain.OperationRepository
}

// NewRepoManager opens (or creates if not existing) the badger stores on disk
// under the given data dir and returns the repositories backed by them.
// Addresses and operations live in dedicated directories.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	addressDb, err := createDb(baseDbDir+"/addresses", logger)
	if err != nil {
		return nil, fmt.Errorf("opening addresses db: %w", err)
	}

	operationDb, err := createDb(baseDbDir+"/operations", logger)
	if err != nil {
		return nil, fmt.Errorf("opening operations db: %w", err)
	}

	return &repoManager{
		addressStore:        addressDb,
		operationStore:      operationDb,
		addressRepository:   NewAddressRepositoryImpl(addressDb),
		operationRepository: NewOperationRepositoryImpl(operationDb),
	}, nil
}

func (d *repoManager) AddressRepository() domain.AddressRepository {
	return d.addressRepository
}

func (d *repoManager) OperationRepository() domain.OperationRepository {
	return d.operationRepository
}

func (d *repoManager) Close() {
	d.addressStore.Close()
	d.operationStore.Close()
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (db *badgerhold.Store, err error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	db, err = badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})

	return
}
