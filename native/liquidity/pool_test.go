package liquidity_test

import (
	"errors"
	"testing"

	"launchpad/core/state"
	"launchpad/crypto"
	"launchpad/native/bank"
	"launchpad/native/liquidity"
	"launchpad/storage"
)

func newTestAddress(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

type fixture struct {
	ledger  *bank.Ledger
	creator crypto.Address
	source  crypto.Address
	mint    crypto.Address
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	ledger := bank.NewLedger(state.NewManager(db))
	f := fixture{
		ledger:  ledger,
		creator: newTestAddress(0x01),
		source:  newTestAddress(0x02),
		mint:    newTestAddress(0x03),
	}
	if _, err := ledger.CreateMint(f.mint, f.creator, 9); err != nil {
		t.Fatalf("create mint: %v", err)
	}
	if _, err := ledger.OpenAccount(f.source, f.creator, f.mint); err != nil {
		t.Fatalf("open source: %v", err)
	}
	if err := ledger.MintTo(f.mint, f.source, 4_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Credit(f.creator, 1_000); err != nil {
		t.Fatalf("credit: %v", err)
	}
	return f
}

func TestCreateAndBurnLocksPosition(t *testing.T) {
	f := newFixture(t)
	req := liquidity.Request{Creator: f.creator, TokenSource: f.source, TokenAmount: 4_000, ValueAmount: 1_000, OpenTime: 7}

	receipt, err := liquidity.CreateAndBurn(f.ledger, liquidity.ConstantProductPool{}, req)
	if err != nil {
		t.Fatalf("create and burn: %v", err)
	}
	if receipt.LPBalance != 2_000 {
		t.Fatalf("expected sqrt(4000*1000)=2000 LP, got %d", receipt.LPBalance)
	}
	position, err := f.ledger.Account(receipt.LPAccount)
	if err != nil {
		t.Fatalf("load position: %v", err)
	}
	if position.Amount != 0 {
		t.Fatalf("expected position to be burned, still holds %d", position.Amount)
	}
	lpMint, err := f.ledger.Mint(receipt.LPMint)
	if err != nil {
		t.Fatalf("load lp mint: %v", err)
	}
	if lpMint.Supply != 0 {
		t.Fatalf("expected zero LP supply, got %d", lpMint.Supply)
	}
	poolValue, _ := f.ledger.Balance(receipt.Pool)
	if poolValue != 1_000 {
		t.Fatalf("expected pool to hold the value side, got %d", poolValue)
	}

	if _, err := liquidity.CreateAndBurn(f.ledger, liquidity.ConstantProductPool{}, req); !errors.Is(err, liquidity.ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists on second creation, got %v", err)
	}
}

type emptyPool struct{}

func (emptyPool) CreatePool(liquidity.Rail, liquidity.Request) (liquidity.Receipt, error) {
	return liquidity.Receipt{}, nil
}

func TestCreateAndBurnRejectsEmptyPosition(t *testing.T) {
	f := newFixture(t)
	req := liquidity.Request{Creator: f.creator, TokenSource: f.source, TokenAmount: 1, ValueAmount: 1}
	if _, err := liquidity.CreateAndBurn(f.ledger, emptyPool{}, req); !errors.Is(err, liquidity.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreatePoolRejectsZeroAmounts(t *testing.T) {
	f := newFixture(t)
	req := liquidity.Request{Creator: f.creator, TokenSource: f.source, TokenAmount: 0, ValueAmount: 1}
	if _, err := (liquidity.ConstantProductPool{}).CreatePool(f.ledger, req); !errors.Is(err, liquidity.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
