package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories/memory"
	"github.com/raffleworks/raffle-backend/pkg/chain"
	"github.com/raffleworks/raffle-backend/pkg/custody"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner      = "sei1owner"
	testTreasury   = "sei1treasury"
	testCollection = "sei1collection"
	testBuyer      = "sei1buyer"
	testDenom      = "usei"
	testNFTAddr    = "sei1nftcontract"
	testNFTToken   = "42"
)

type bankSend struct {
	To     string
	Amount uint64
	Denom  string
}

type fakeChain struct {
	mu      sync.Mutex
	block   chain.Block
	balance uint64
	sends   []bankSend
}

func (f *fakeChain) LatestBlock(ctx context.Context) (chain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.block, nil
}

func (f *fakeChain) Send(ctx context.Context, to string, amount uint64, denom string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, bankSend{To: to, Amount: amount, Denom: denom})
	return fmt.Sprintf("tx-%d", len(f.sends)), nil
}

func (f *fakeChain) Balance(ctx context.Context, address, denom string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, nil
}

func (f *fakeChain) setBlock(height uint64, sec int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = chain.Block{Height: height, Time: time.Unix(sec, 0)}
}

type nftTransfer struct {
	ContractAddr string
	TokenID      string
	Recipient    string
}

type fakeCustody struct {
	mu        sync.Mutex
	owners    map[string]custody.Ownership
	transfers []nftTransfer
}

func newFakeCustody() *fakeCustody {
	return &fakeCustody{owners: make(map[string]custody.Ownership)}
}

func (f *fakeCustody) setOwnership(contractAddr, tokenID string, own custody.Ownership) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[contractAddr+"/"+tokenID] = own
}

func (f *fakeCustody) OwnerOf(ctx context.Context, contractAddr, tokenID string) (custody.Ownership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	own, ok := f.owners[contractAddr+"/"+tokenID]
	if !ok {
		return custody.Ownership{}, fmt.Errorf("token %s/%s not found", contractAddr, tokenID)
	}
	return own, nil
}

func (f *fakeCustody) TransferNFT(ctx context.Context, contractAddr, tokenID, recipient string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, nftTransfer{ContractAddr: contractAddr, TokenID: tokenID, Recipient: recipient})
	return fmt.Sprintf("nfttx-%d", len(f.transfers)), nil
}

type fixture struct {
	svc       *GameService
	chain     *fakeChain
	custody   *fakeCustody
	games     *memory.GameRepository
	tickets   *memory.TicketRepository
	transfers *memory.TransferRepository
}

func newFixture(t *testing.T, cfg GameServiceConfig) *fixture {
	t.Helper()
	if cfg.TreasuryAddress == "" {
		cfg.TreasuryAddress = testTreasury
	}
	if cfg.Denom == "" {
		cfg.Denom = testDenom
	}

	f := &fixture{
		chain:     &fakeChain{block: chain.Block{Height: 1, Time: time.Unix(1700000000, 0)}},
		custody:   newFakeCustody(),
		games:     memory.NewGameRepository(),
		tickets:   memory.NewTicketRepository(),
		transfers: memory.NewTransferRepository(),
	}
	globalRepo := memory.NewGlobalStateRepository()
	f.svc = NewGameService(globalRepo, f.games, f.tickets, f.transfers, f.chain, f.custody, cfg)
	require.NoError(t, f.svc.EnsureRegistry(context.Background(), testOwner))
	return f
}

// openGame opens a game whose prize the treasury already owns. End time is
// 1700000050000 ms; the fixture block starts 50 seconds before that.
func (f *fixture) openGame(t *testing.T, price, total uint64) *models.Game {
	t.Helper()
	f.custody.setOwnership(testNFTAddr, testNFTToken, custody.Ownership{Owner: testTreasury})
	game, err := f.svc.OpenGame(context.Background(), testOwner, OpenGameParams{
		TicketPrice:      price,
		TotalTicketCount: total,
		NFTContractAddr:  testNFTAddr,
		NFTTokenID:       testNFTToken,
		CollectionWallet: testCollection,
		EndTime:          1700000050000,
	})
	require.NoError(t, err)
	return game
}

func TestOpenGameRequiresOwner(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	f.custody.setOwnership(testNFTAddr, testNFTToken, custody.Ownership{Owner: testTreasury})

	_, err := f.svc.OpenGame(context.Background(), "sei1intruder", OpenGameParams{
		TicketPrice:      100,
		TotalTicketCount: 10,
		NFTContractAddr:  testNFTAddr,
		NFTTokenID:       testNFTToken,
		CollectionWallet: testCollection,
		EndTime:          1700000050000,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestOpenGameRequiresTransferablePrize(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	f.custody.setOwnership(testNFTAddr, testNFTToken, custody.Ownership{Owner: "sei1somebodyelse"})

	params := OpenGameParams{
		TicketPrice:      100,
		TotalTicketCount: 10,
		NFTContractAddr:  testNFTAddr,
		NFTTokenID:       testNFTToken,
		CollectionWallet: testCollection,
		EndTime:          1700000050000,
	}
	_, err := f.svc.OpenGame(context.Background(), testOwner, params)
	assert.ErrorIs(t, err, ErrCantAccessPrize)

	// An approval to the treasury is as good as ownership.
	f.custody.setOwnership(testNFTAddr, testNFTToken, custody.Ownership{
		Owner:     "sei1somebodyelse",
		Approvals: []string{testTreasury},
	})
	game, err := f.svc.OpenGame(context.Background(), testOwner, params)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusActive, game.RaffleStatus)
}

func TestOpenGameAssignsSequentialIDs(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	first := f.openGame(t, 100, 10)
	second := f.openGame(t, 200, 5)

	assert.Equal(t, uint64(1), first.GameID)
	assert.Equal(t, uint64(2), second.GameID)

	state, err := f.svc.Registry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.GameCount)
	assert.Equal(t, testOwner, state.Owner)
}

func TestEnterGameAllocatesAndRefunds(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	result, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 250)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.StartTicketNumber)
	assert.Equal(t, []uint64{1, 2}, result.TicketNumbers)
	assert.Equal(t, uint64(50), result.Refund)
	assert.NotEmpty(t, result.RefundTxRef)

	updated, err := f.svc.GetGame(context.Background(), game.GameID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), updated.SoldTicketCount)

	numbers, err := f.svc.WalletTickets(context.Background(), game.GameID, testBuyer)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, numbers)

	require.Len(t, f.chain.sends, 1)
	assert.Equal(t, bankSend{To: testBuyer, Amount: 50, Denom: testDenom}, f.chain.sends[0])

	records, err := f.transfers.FindByGameID(context.Background(), game.GameID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.TransferReasonRefund, records[0].Reason)
	assert.Equal(t, uint64(50), records[0].Amount)
}

func TestEnterGameExactPaymentNoRefund(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	result, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 300)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, result.TicketNumbers)
	assert.Zero(t, result.Refund)
	assert.Empty(t, f.chain.sends)
}

func TestEnterGameRejectsUnderpayment(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	_, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 50)
	assert.ErrorIs(t, err, ErrIncorrectFunds)

	_, err = f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 99)
	assert.ErrorIs(t, err, ErrIncorrectFunds)

	updated, err := f.svc.GetGame(context.Background(), game.GameID)
	require.NoError(t, err)
	assert.Zero(t, updated.SoldTicketCount)
}

func TestEnterGameClampsToCapacity(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 3)

	// Pays for five tickets but only three exist; the excess comes back.
	result, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 500)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, result.TicketNumbers)
	assert.Equal(t, uint64(200), result.Refund)
}

func TestEnterGameSoldOut(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 2)

	_, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 200)
	require.NoError(t, err)

	// Sold-out wins over underpayment in the check order.
	_, err = f.svc.EnterGame(context.Background(), game.GameID, "sei1latecomer", 50)
	assert.ErrorIs(t, err, ErrRaffleSoldOut)
}

func TestEnterGameUnknownGame(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})

	_, err := f.svc.EnterGame(context.Background(), 999, testBuyer, 100)
	assert.ErrorIs(t, err, ErrWrongGameID)
}

func TestEnterGameAfterEndTime(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	// End time equal to block time already counts as over.
	f.chain.setBlock(2, 1700000050)
	_, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 100)
	assert.ErrorIs(t, err, ErrRaffleTimeOver)
}

func TestEnterGameContiguousAcrossBuyers(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	first, err := f.svc.EnterGame(context.Background(), game.GameID, "sei1alice", 300)
	require.NoError(t, err)
	second, err := f.svc.EnterGame(context.Background(), game.GameID, "sei1bob", 200)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2, 3}, first.TicketNumbers)
	assert.Equal(t, []uint64{4, 5}, second.TicketNumbers)

	// Ownership rows use the zero-based index.
	ticket, err := f.tickets.FindByIndex(context.Background(), game.GameID, 3)
	require.NoError(t, err)
	assert.Equal(t, "sei1bob", ticket.Wallet)
}

func TestSettleGameBeforeEnd(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	_, err := f.svc.SettleGame(context.Background(), "", game.GameID)
	assert.ErrorIs(t, err, ErrCantFinishGame)
}

func TestSettleGameDrawsWinner(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	_, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 1000)
	require.NoError(t, err)

	f.chain.setBlock(5, 1700000100)
	result, err := f.svc.SettleGame(context.Background(), "", game.GameID)
	require.NoError(t, err)

	assert.True(t, result.WinnerFound)
	assert.Equal(t, testBuyer, result.Winner)
	assert.Equal(t, testBuyer, result.Recipient)
	assert.NotEmpty(t, result.PrizeTxRef)

	updated, err := f.svc.GetGame(context.Background(), game.GameID)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusEnded, updated.RaffleStatus)

	require.Len(t, f.custody.transfers, 1)
	assert.Equal(t, nftTransfer{ContractAddr: testNFTAddr, TokenID: testNFTToken, Recipient: testBuyer}, f.custody.transfers[0])

	// Settlement is one-shot.
	_, err = f.svc.SettleGame(context.Background(), "", game.GameID)
	assert.ErrorIs(t, err, ErrRaffleEnded)

	// And an ended game sells no more tickets.
	_, err = f.svc.EnterGame(context.Background(), game.GameID, "sei1latecomer", 100)
	assert.ErrorIs(t, err, ErrRaffleEnded)
}

func TestSettleGameFallsBackWhenUnsold(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	// One ticket sold (index 0); at height 5 / 1700000100s the draw names
	// index 1, which nobody holds.
	_, err := f.svc.EnterGame(context.Background(), game.GameID, testBuyer, 100)
	require.NoError(t, err)

	f.chain.setBlock(5, 1700000100)
	result, err := f.svc.SettleGame(context.Background(), "", game.GameID)
	require.NoError(t, err)

	assert.False(t, result.WinnerFound)
	assert.Empty(t, result.Winner)
	assert.Equal(t, testCollection, result.Recipient)

	require.Len(t, f.custody.transfers, 1)
	assert.Equal(t, testCollection, f.custody.transfers[0].Recipient)

	records, err := f.transfers.FindByGameID(context.Background(), game.GameID)
	require.NoError(t, err)
	var prize *models.Transfer
	for _, record := range records {
		if record.Kind == models.TransferKindNFT {
			prize = record
		}
	}
	require.NotNil(t, prize)
	assert.Equal(t, models.TransferReasonFallback, prize.Reason)
}

func TestSettleGameRestricted(t *testing.T) {
	f := newFixture(t, GameServiceConfig{RestrictSettle: true})
	game := f.openGame(t, 100, 10)
	f.chain.setBlock(5, 1700000100)

	_, err := f.svc.SettleGame(context.Background(), "sei1intruder", game.GameID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.SettleGame(context.Background(), testOwner, game.GameID)
	require.NoError(t, err)
}

func TestSettleExpired(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	expired := f.openGame(t, 100, 10)

	f.custody.setOwnership(testNFTAddr, "43", custody.Ownership{Owner: testTreasury})
	_, err := f.svc.OpenGame(context.Background(), testOwner, OpenGameParams{
		TicketPrice:      100,
		TotalTicketCount: 10,
		NFTContractAddr:  testNFTAddr,
		NFTTokenID:       "43",
		CollectionWallet: testCollection,
		EndTime:          1800000000000,
	})
	require.NoError(t, err)

	f.chain.setBlock(5, 1700000100)
	settled := f.svc.SettleExpired(context.Background(), testOwner)
	assert.Equal(t, 1, settled)

	game, err := f.svc.GetGame(context.Background(), expired.GameID)
	require.NoError(t, err)
	assert.Equal(t, models.RaffleStatusEnded, game.RaffleStatus)

	// The still-running game is untouched and a second sweep settles nothing.
	assert.Zero(t, f.svc.SettleExpired(context.Background(), testOwner))
}

func TestSweepFundsRequiresOwner(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})

	_, err := f.svc.SweepFunds(context.Background(), "sei1intruder", "sei1dest", testDenom, 1000)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, f.chain.sends)

	transfer, err := f.svc.SweepFunds(context.Background(), testOwner, "sei1dest", testDenom, 1000)
	require.NoError(t, err)
	assert.Equal(t, models.TransferReasonSweep, transfer.Reason)
	assert.NotEmpty(t, transfer.TxRef)

	require.Len(t, f.chain.sends, 1)
	assert.Equal(t, bankSend{To: "sei1dest", Amount: 1000, Denom: testDenom}, f.chain.sends[0])
}

func TestEnsureRegistryIdempotent(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	f.openGame(t, 100, 10)

	// A restart must not reset the counter or reassign the owner.
	require.NoError(t, f.svc.EnsureRegistry(context.Background(), "sei1differentowner"))

	state, err := f.svc.Registry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testOwner, state.Owner)
	assert.Equal(t, uint64(1), state.GameCount)
}

func TestWalletTicketsEmptyForStranger(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 10)

	numbers, err := f.svc.WalletTickets(context.Background(), game.GameID, "sei1stranger")
	require.NoError(t, err)
	assert.Empty(t, numbers)
}

func TestConcurrentEntriesStayContiguous(t *testing.T) {
	f := newFixture(t, GameServiceConfig{})
	game := f.openGame(t, 100, 100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			wallet := fmt.Sprintf("sei1wallet%d", n)
			_, err := f.svc.EnterGame(context.Background(), game.GameID, wallet, 500)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	updated, err := f.svc.GetGame(context.Background(), game.GameID)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), updated.SoldTicketCount)

	// Every index in [0, 100) was assigned exactly once.
	for index := uint64(0); index < 100; index++ {
		_, err := f.tickets.FindByIndex(context.Background(), game.GameID, index)
		assert.NoError(t, err, "index %d", index)
	}
}
