package lib

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigIntArithmetic(t *testing.T) {
	price := Bn(1, 15)
	floor := price.Mul(Bn(95, 0)).Div(Bn(100, 0))
	assert.Equal(t, "950000000000000", floor.String())
	assert.True(t, floor.Lt(price))
	assert.True(t, price.Gt(floor))
	assert.True(t, floor.Gte(floor))
	assert.True(t, floor.Lte(floor))
	assert.True(t, price.Sub(floor).Eq(Bn(5, 13)))
	assert.True(t, floor.Add(Bn(5, 13)).Eq(price))
}

func TestBigIntDoesNotMutate(t *testing.T) {
	a := Bn(10, 0)
	b := Bn(3, 0)
	_ = a.Sub(b)
	_ = a.Add(b)
	assert.Equal(t, "10", a.String())
	assert.Equal(t, "3", b.String())
}

func TestBigIntJSON(t *testing.T) {
	bs, err := json.Marshal(Bn(1, 18))
	require.NoError(t, err)
	assert.Equal(t, `"1000000000000000000"`, string(bs))

	var n *BigInt
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &n))
	assert.True(t, n.Eq(Bn(42, 0)))
}

func TestBigIntSQL(t *testing.T) {
	v, err := Bn(7, 15).Value()
	require.NoError(t, err)
	assert.Equal(t, "7000000000000000", v)

	n := &BigInt{}
	require.NoError(t, n.Scan("123"))
	assert.True(t, n.Eq(Bn(123, 0)))
	require.NoError(t, n.Scan([]byte("456")))
	assert.True(t, n.Eq(Bn(456, 0)))
}

func TestCreditAmounts(t *testing.T) {
	wei := func(n int64) *big.Int { return big.NewInt(n) }

	// A lone successful transfer is credited the full balance delta, even
	// when its stated value disagrees.
	got := creditAmounts(wei(900), []*big.Int{wei(1000)}, []bool{false})
	assert.Equal(t, int64(900), got[0].Int64())

	// Multiple transfers get their stated value, capped so the block's
	// total credit never exceeds the observed delta.
	got = creditAmounts(wei(1500), []*big.Int{wei(1000), wei(1000)}, []bool{false, false})
	assert.Equal(t, int64(1000), got[0].Int64())
	assert.Equal(t, int64(500), got[1].Int64())

	// Failed transfers moved nothing; the survivor is credited the delta.
	got = creditAmounts(wei(1000), []*big.Int{wei(1000), wei(1000)}, []bool{false, true})
	assert.Equal(t, int64(1000), got[0].Int64())
	assert.Equal(t, int64(0), got[1].Int64())

	// A negative delta (the address also spent in the block) credits nothing
	// extra once the delta is exhausted.
	got = creditAmounts(wei(-100), []*big.Int{wei(50), wei(50)}, []bool{false, false})
	assert.Equal(t, int64(0), got[0].Int64())
	assert.Equal(t, int64(0), got[1].Int64())
}

func TestTxMemo(t *testing.T) {
	assert.Equal(t, "order-12ab", txMemo([]byte("order-12ab")))
	assert.Equal(t, "", txMemo(nil))
	assert.Equal(t, "", txMemo([]byte{0xa9, 0x05, 0x9c, 0xbb}), "ABI calldata is not a memo")
	assert.Equal(t, "", txMemo(make([]byte, 65)), "memos are capped at 64 bytes")
}

func TestNewSecretID(t *testing.T) {
	id := NewSecretID()
	assert.Len(t, id, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", id)
	assert.NotEqual(t, id, NewSecretID())
}
