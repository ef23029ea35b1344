package univ2

import (
	"math/big"
	"testing"
)

func bi(s string) *big.Int {
	z, _ := new(big.Int).SetString(s, 10)
	return z
}

func TestGetAmountOut_Basic(t *testing.T) {
	t.Parallel()

	out, ok := GetAmountOut(bi("100"), bi("1000"), bi("1000"))
	if !ok {
		t.Fatalf("ok=false")
	}
	if out.Cmp(bi("90")) != 0 { // 90.6... -> 90
		t.Fatalf("want 90 got %s", out.String())
	}
}

func TestGetAmountOut_Zeroes(t *testing.T) {
	t.Parallel()

	if _, ok := GetAmountOut(bi("0"), bi("1"), bi("1")); ok {
		t.Fatal("zero amountIn should be false")
	}
	if _, ok := GetAmountOut(bi("1"), bi("0"), bi("1")); ok {
		t.Fatal("zero reserveIn should be false")
	}
	if _, ok := GetAmountOut(bi("1"), bi("1"), bi("0")); ok {
		t.Fatal("zero reserveOut should be false")
	}
}

func TestGetAmountOut_LargeReserves(t *testing.T) {
	t.Parallel()

	// 1 ETH into a deep 18-decimals pool barely moves the price.
	out, ok := GetAmountOut(
		bi("1000000000000000000"),
		bi("1234567890000000000000"),
		bi("987654321000000000000000"),
	)
	if !ok {
		t.Fatalf("ok=false")
	}
	if out.Sign() <= 0 {
		t.Fatalf("want positive output, got %s", out.String())
	}
}

func TestPriceImpactPercent(t *testing.T) {
	t.Parallel()

	t.Run("small trade has small impact", func(t *testing.T) {
		amountIn := bi("1000000000000000000")
		reserveIn := bi("10000000000000000000000")
		reserveOut := bi("20000000000000000000000000")
		out, ok := GetAmountOut(amountIn, reserveIn, reserveOut)
		if !ok {
			t.Fatal("ok=false")
		}
		impact, _ := PriceImpactPercent(amountIn, out, reserveIn, reserveOut).Float64()
		if impact <= 0 || impact > 1 {
			t.Fatalf("want impact in (0,1]%%, got %f", impact)
		}
	})

	t.Run("trade near pool size has large impact", func(t *testing.T) {
		amountIn := bi("1000")
		reserveIn := bi("1000")
		reserveOut := bi("1000")
		out, ok := GetAmountOut(amountIn, reserveIn, reserveOut)
		if !ok {
			t.Fatal("ok=false")
		}
		impact, _ := PriceImpactPercent(amountIn, out, reserveIn, reserveOut).Float64()
		if impact < 40 {
			t.Fatalf("want impact >= 40%%, got %f", impact)
		}
	})

	t.Run("zero guards", func(t *testing.T) {
		if v, _ := PriceImpactPercent(bi("0"), bi("0"), bi("1"), bi("1")).Float64(); v != 0 {
			t.Fatalf("want 0 got %f", v)
		}
		if v, _ := PriceImpactPercent(bi("1"), bi("1"), bi("0"), bi("1")).Float64(); v != 0 {
			t.Fatalf("want 0 got %f", v)
		}
	})
}
