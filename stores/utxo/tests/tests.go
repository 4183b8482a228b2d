// Package tests holds the behaviour every utxo.Store implementation must share.
package tests

import (
	"context"
	"sync"
	"testing"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	utxostore "github.com/bitnames/bitnames/stores/utxo"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	AddressA = model.NewTestAddress(0xaa)
	AddressB = model.NewTestAddress(0xbb)

	// FundingTx pays 100 and 50 to AddressA.
	FundingTx = model.NewTestFundingTransaction(1, AddressA, 100, 50)
	Outpoint0 = model.NewOutPoint(FundingTx.TxID(), 0)
	Outpoint1 = model.NewOutPoint(FundingTx.TxID(), 1)

	SpendingTxID  = chainhash.HashH([]byte("spending"))
	SpendingTxID2 = chainhash.HashH([]byte("spending-2"))
)

func Create(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	utxos, err := db.Create(ctx, FundingTx, 10)
	require.NoError(t, err)
	require.Len(t, utxos, 2)

	resp, err := db.Get(ctx, Outpoint1)
	require.NoError(t, err)
	assert.False(t, resp.IsSpent())
	assert.Equal(t, uint64(50), resp.Utxo.Output.Value)
	assert.Equal(t, AddressA, resp.Utxo.Output.Address)

	_, err = db.Create(ctx, FundingTx, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxAlreadyExists))

	_, err = db.Get(ctx, model.NewOutPoint(FundingTx.TxID(), 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxNotFound))
}

func Spend(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	_, err := db.Create(ctx, FundingTx, 10)
	require.NoError(t, err)

	require.NoError(t, db.Spend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID))

	resp, err := db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	require.True(t, resp.IsSpent())
	assert.Equal(t, SpendingTxID, *resp.SpendingTxID)

	// any second spend fails, even by the same transaction
	err = db.Spend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUtxoSpent))

	err = db.Spend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUtxoSpent))

	var spentData *errors.UtxoSpentErrData
	require.True(t, errors.AsData(err, &spentData))
	assert.Equal(t, SpendingTxID, spentData.SpendingTxHash)
	assert.Equal(t, uint32(0), spentData.Vout)

	err = db.Spend(ctx, []model.OutPoint{model.NewOutPoint(chainhash.Hash{}, 0)}, SpendingTxID2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxNotFound))
}

// SpendAllOrNothing checks that a failing outpoint leaves the others unspent.
func SpendAllOrNothing(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	_, err := db.Create(ctx, FundingTx, 10)
	require.NoError(t, err)

	require.NoError(t, db.Spend(ctx, []model.OutPoint{Outpoint1}, SpendingTxID))

	err = db.Spend(ctx, []model.OutPoint{Outpoint0, Outpoint1}, SpendingTxID2)
	require.Error(t, err)

	resp, err := db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.False(t, resp.IsSpent())

	err = db.Spend(ctx, []model.OutPoint{Outpoint0, model.NewOutPoint(chainhash.Hash{}, 9)}, SpendingTxID2)
	require.Error(t, err)

	resp, err = db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.False(t, resp.IsSpent())
}

func UnSpend(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	_, err := db.Create(ctx, FundingTx, 10)
	require.NoError(t, err)

	require.NoError(t, db.Spend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID))

	// another transaction cannot release the spend
	require.NoError(t, db.UnSpend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID2))

	resp, err := db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.True(t, resp.IsSpent())

	require.NoError(t, db.UnSpend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID))

	resp, err = db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.False(t, resp.IsSpent())

	require.NoError(t, db.Spend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID2))
}

func Delete(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	_, err := db.Create(ctx, FundingTx, 10)
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, []model.OutPoint{Outpoint0, model.NewOutPoint(chainhash.Hash{}, 3)}))

	_, err = db.Get(ctx, Outpoint0)
	assert.True(t, errors.Is(err, errors.ErrTxNotFound))

	utxos, err := db.GetByAddresses(ctx, []model.Address{AddressA})
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, Outpoint1, utxos[0].OutPoint)
}

func GetByAddresses(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	utxos, err := db.GetByAddresses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, utxos)

	_, err = db.Create(ctx, FundingTx, 10)
	require.NoError(t, err)

	otherTx := model.NewTestFundingTransaction(2, AddressB, 7)
	_, err = db.Create(ctx, otherTx, 11)
	require.NoError(t, err)

	utxos, err = db.GetByAddresses(ctx, []model.Address{AddressB, AddressA})
	require.NoError(t, err)
	require.Len(t, utxos, 3)
	assert.Equal(t, AddressB, utxos[0].Output.Address)
	assert.Equal(t, Outpoint0, utxos[1].OutPoint)
	assert.Equal(t, Outpoint1, utxos[2].OutPoint)

	// repeated calls see the same result
	again, err := db.GetByAddresses(ctx, []model.Address{AddressB, AddressA, AddressA})
	require.NoError(t, err)
	assert.Equal(t, utxos, again)

	// provisionally spent outputs are hidden
	require.NoError(t, db.Spend(ctx, []model.OutPoint{Outpoint0}, SpendingTxID))

	utxos, err = db.GetByAddresses(ctx, []model.Address{AddressA})
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, Outpoint1, utxos[0].OutPoint)

	utxos, err = db.GetByAddresses(ctx, []model.Address{model.NewTestAddress(0xcc)})
	require.NoError(t, err)
	assert.Empty(t, utxos)
}

func BitNames(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	alice := model.BitName{Key: chainhash.HashH([]byte("alice")), Value: chainhash.HashH([]byte("a"))}
	bob := model.BitName{Key: chainhash.HashH([]byte("bob")), Value: chainhash.HashH([]byte("b"))}
	carol := model.BitName{Key: chainhash.HashH([]byte("carol")), Value: chainhash.HashH([]byte("c"))}

	require.NoError(t, db.SetBitNames(ctx, []model.BitName{alice, bob}))

	found, err := db.GetBitNames(ctx, []chainhash.Hash{alice.Key, carol.Key})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, alice.Value, found[alice.Key])

	err = db.SetBitNames(ctx, []model.BitName{carol, bob})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrKeyAlreadyExists))

	// carol was not registered by the failed call
	found, err = db.GetBitNames(ctx, []chainhash.Hash{carol.Key})
	require.NoError(t, err)
	assert.Empty(t, found)

	names, err := db.ListBitNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.BitName{alice, bob}, names)
}

func BitNamesPage(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	names := make([]model.BitName, 0, 5)
	for i := 0; i < 5; i++ {
		names = append(names, model.BitName{Key: chainhash.HashH([]byte{byte(i)}), Value: chainhash.HashH([]byte{byte(i), 1})})
	}

	require.NoError(t, db.SetBitNames(ctx, names))

	sorted := append([]model.BitName(nil), names...)
	utxostore.SortBitNames(sorted)

	page, total, err := db.ListBitNamesPage(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, sorted[1:3], page)

	page, total, err = db.ListBitNamesPage(ctx, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, sorted[4:], page)

	page, _, err = db.ListBitNamesPage(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func BestBlock(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	hash, height, err := db.GetBestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, chainhash.Hash{}, hash)
	assert.Equal(t, uint32(0), height)

	tip := chainhash.HashH([]byte("tip"))

	require.NoError(t, db.SetBestBlock(ctx, tip, 42))
	require.NoError(t, db.SetBestBlock(ctx, tip, 43))

	hash, height, err = db.GetBestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, tip, hash)
	assert.Equal(t, uint32(43), height)
}

// ConnectBlock spends a confirmed output into a BitName registration.
func ConnectBlock(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	_, err := db.Create(ctx, FundingTx, 0)
	require.NoError(t, err)

	alice := chainhash.HashH([]byte("alice"))
	tx := &model.Transaction{
		Inputs: []model.OutPoint{Outpoint0},
		Outputs: []model.Output{
			model.NewBitNameOutput(AddressB, alice, chainhash.HashH([]byte("pubkey"))),
			model.NewValueOutput(AddressB, 90),
		},
	}

	block := model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{tx})

	require.NoError(t, db.ConnectBlock(ctx, block))

	_, err = db.Get(ctx, Outpoint0)
	assert.True(t, errors.Is(err, errors.ErrTxNotFound))

	utxos, err := db.GetByAddresses(ctx, []model.Address{AddressB})
	require.NoError(t, err)
	assert.Len(t, utxos, 2)

	found, err := db.GetBitNames(ctx, []chainhash.Hash{alice})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	hash, height, err := db.GetBestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), hash)
	assert.Equal(t, uint32(1), height)

	// connecting it again changes nothing
	err = db.ConnectBlock(ctx, block)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTxAlreadyExists))
}

// ConnectBlockAllOrNothing fails on the last transaction of a block and checks that the
// earlier ones left no trace.
func ConnectBlockAllOrNothing(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	_, err := db.Create(ctx, FundingTx, 0)
	require.NoError(t, err)

	taken := model.BitName{Key: chainhash.HashH([]byte("taken")), Value: chainhash.HashH([]byte("v"))}
	require.NoError(t, db.SetBitNames(ctx, []model.BitName{taken}))

	first := model.NewTestSpendingTransaction([]model.OutPoint{Outpoint0}, AddressB, 90)
	second := &model.Transaction{
		Inputs:  []model.OutPoint{Outpoint1},
		Outputs: []model.Output{model.NewBitNameOutput(AddressB, taken.Key, chainhash.Hash{})},
	}

	err = db.ConnectBlock(ctx, model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{first, second}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrKeyAlreadyExists))

	resp, err := db.Get(ctx, Outpoint0)
	require.NoError(t, err)
	assert.False(t, resp.IsSpent())

	_, err = db.Get(ctx, model.NewOutPoint(first.TxID(), 0))
	assert.True(t, errors.Is(err, errors.ErrTxNotFound))

	_, height, err := db.GetBestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), height)

	// the block without the offending transaction connects
	require.NoError(t, db.ConnectBlock(ctx, model.NewBlock(chainhash.Hash{}, 1, []*model.Transaction{first})))
}

// ConcurrentSpend races many spenders of the same outpoint. Exactly one wins.
func ConcurrentSpend(t *testing.T, db utxostore.Store) {
	ctx := context.Background()

	_, err := db.Create(ctx, FundingTx, 10)
	require.NoError(t, err)

	const spenders = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < spenders; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			if err := db.Spend(ctx, []model.OutPoint{Outpoint0}, chainhash.HashH([]byte{byte(i)})); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 1, successes)
}

// Suite lists every shared test by name.
var Suite = map[string]func(*testing.T, utxostore.Store){
	"create":              Create,
	"spend":               Spend,
	"spend all or none":   SpendAllOrNothing,
	"unspend":             UnSpend,
	"delete":              Delete,
	"get by addresses":    GetByAddresses,
	"bitnames":            BitNames,
	"bitnames page":       BitNamesPage,
	"best block":          BestBlock,
	"connect block":       ConnectBlock,
	"connect all or none": ConnectBlockAllOrNothing,
	"concurrent spend":    ConcurrentSpend,
}
