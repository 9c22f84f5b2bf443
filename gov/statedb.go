// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"encoding/json"

	"blockwatch.cc/packdb/store"

	"github.com/Preciousbas/polichain-governance/gov/model"
)

var (
	// tipBucketName is the name of the db bucket used to house the
	// engine tip.
	tipBucketName = []byte("tip")

	// tipKey is the key of the tip serialized data in the db.
	tipKey = []byte("tip")

	// genesisBucketName is the name of the bucket holding the raw
	// genesis blob for later audits.
	genesisBucketName = []byte("genesis")

	// genesisKey is the key of the genesis blob.
	genesisKey = []byte("blob")
)

func dbLoadTip(dbTx store.Tx) (*model.Tip, error) {
	tip := &model.Tip{}
	bucket := dbTx.Bucket(tipBucketName)
	if bucket == nil {
		return nil, model.ErrNoTip
	}
	buf := bucket.Get(tipKey)
	if buf == nil {
		return nil, model.ErrNoTip
	}
	err := json.Unmarshal(buf, &tip)
	if err != nil {
		return nil, err
	}
	return tip, nil
}

func dbStoreTip(dbTx store.Tx, tip *model.Tip) error {
	buf, err := json.Marshal(tip)
	if err != nil {
		return err
	}
	bucket := dbTx.Bucket(tipBucketName)
	bucket.FillPercent(1.0)
	return bucket.Put(tipKey, buf)
}

func dbStoreGenesis(dbTx store.Tx, blob []byte) error {
	bucket := dbTx.Bucket(genesisBucketName)
	bucket.FillPercent(1.0)
	return bucket.Put(genesisKey, blob)
}

func dbLoadGenesis(dbTx store.Tx) ([]byte, error) {
	bucket := dbTx.Bucket(genesisBucketName)
	if bucket == nil {
		return nil, model.ErrNoTip
	}
	buf := bucket.Get(genesisKey)
	if buf == nil {
		return nil, model.ErrNoTip
	}
	blob := make([]byte, len(buf))
	copy(blob, buf)
	return blob, nil
}
