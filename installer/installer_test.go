package installer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfabienke/3com-packet-driver-sub011/errors"
	"github.com/jfabienke/3com-packet-driver-sub011/modbin"
)

// testImage builds a minimal self-consistent image: header plus nop body.
func testImage(t *testing.T, mutate func(*modbin.ImageHeader)) []byte {
	t.Helper()
	body := 0x50
	hdr := modbin.ImageHeader{
		Version:   modbin.ImageVersion,
		ImageSize: uint16(modbin.ImageHeaderSize + body),
		API:       0x20,
		Idle:      0x28,
		IRQ:       0x30,
		Data:      0x40,
		DataSize:  0x10,
		Stack:     0x50,
		StackSize: 0x10,
		Uninstall: 0x60,
		IRQNumber: 5,
		IntNumber: 0x60,
	}
	if mutate != nil {
		mutate(&hdr)
	}
	img := make([]byte, int(hdr.ImageSize))
	copy(img, hdr.Encode())
	for i := modbin.ImageHeaderSize; i < len(img); i++ {
		img[i] = 0x90
	}
	return img
}

func TestInstall(t *testing.T) {
	host := NewMemHost(0x60000)
	vec := NewMemVectors()
	img := testImage(t, nil)

	res, err := Install(img, host, vec)
	require.NoError(t, err)

	base := res.Block.Base()
	assert.Equal(t, uint32(0x60000), base)
	assert.Equal(t, img, res.Block.Bytes()[:len(img)])

	assert.Equal(t, base+0x20, vec.Get(0x60))         // API
	assert.Equal(t, base+0x28, vec.Get(IdleVector))   // idle
	assert.Equal(t, base+0x30, vec.Get(IRQVector(5))) // IRQ 5 -> vector 0x0D
	assert.Len(t, res.Vectors, 3)
}

func TestInstallRoundsToParagraph(t *testing.T) {
	host := NewMemHost(0)
	vec := NewMemVectors()
	img := testImage(t, func(h *modbin.ImageHeader) {
		h.ImageSize = modbin.ImageHeaderSize + 0x53 // not a paragraph multiple
	})

	res, err := Install(img, host, vec)
	require.NoError(t, err)
	assert.Zero(t, len(res.Block.Bytes())%ParagraphSize)
	assert.GreaterOrEqual(t, len(res.Block.Bytes()), len(img))
}

func TestInstallSkipsIdleWhenAbsent(t *testing.T) {
	host := NewMemHost(0)
	vec := NewMemVectors()
	before := vec.Get(IdleVector)

	res, err := Install(testImage(t, func(h *modbin.ImageHeader) { h.Idle = 0 }), host, vec)
	require.NoError(t, err)
	assert.Equal(t, before, vec.Get(IdleVector))
	assert.Len(t, res.Vectors, 2)
}

func TestInstallHighIRQUsesSlaveVectors(t *testing.T) {
	host := NewMemHost(0)
	vec := NewMemVectors()

	res, err := Install(testImage(t, func(h *modbin.ImageHeader) { h.IRQNumber = 10 }), host, vec)
	require.NoError(t, err)
	assert.Equal(t, res.Block.Base()+0x30, vec.Get(0x72))
}

func TestInstallRejectsBadMagic(t *testing.T) {
	host := NewMemHost(0)
	vec := NewMemVectors()
	img := testImage(t, nil)
	img[0] = 'X'

	vecsBefore := *vec
	_, err := Install(img, host, vec)
	require.Error(t, err)
	assert.Equal(t, errors.KindImageHeaderInvalid, errors.KindOf(err))

	// Block released, vector table untouched.
	assert.Zero(t, host.Resident())
	assert.Equal(t, vecsBefore.Sets(), vec.Sets())
}

func TestInstallRejectsSizeMismatch(t *testing.T) {
	host := NewMemHost(0)
	vec := NewMemVectors()
	img := testImage(t, nil)
	img = append(img, 0x90) // one byte longer than the header claims

	_, err := Install(img, host, vec)
	require.Error(t, err)
	assert.Equal(t, errors.KindImageHeaderInvalid, errors.KindOf(err))
	assert.Zero(t, host.Resident())
}

func TestInstallAllocationFailure(t *testing.T) {
	host := NewMemHost(0)
	host.Limit = 16
	vec := NewMemVectors()

	_, err := Install(testImage(t, nil), host, vec)
	require.Error(t, err)
	assert.Equal(t, errors.KindAllocationFailed, errors.KindOf(err))
	assert.Zero(t, vec.Sets())
}

// flakyVectors fails exactly one Set call, so the rollback path still works.
type flakyVectors struct {
	*MemVectors
	failAt int // 1-based index of the Set call that fails
	calls  int
}

func (f *flakyVectors) Set(v uint8, addr uint32) (uint32, error) {
	f.calls++
	if f.calls == f.failAt {
		return 0, fmt.Errorf("vector table locked")
	}
	return f.MemVectors.Set(v, addr)
}

func TestInstallRollsBackVectorsOnFailure(t *testing.T) {
	host := NewMemHost(0)
	vec := &flakyVectors{MemVectors: NewMemVectors(), failAt: 3}
	apiBefore := vec.Get(0x60)
	idleBefore := vec.Get(IdleVector)

	_, err := Install(testImage(t, nil), host, vec)
	require.Error(t, err)

	assert.Equal(t, apiBefore, vec.Get(0x60))
	assert.Equal(t, idleBefore, vec.Get(IdleVector))
	assert.Zero(t, host.Resident())
}

func TestUninstallRestores(t *testing.T) {
	host := NewMemHost(0)
	vec := NewMemVectors()
	apiBefore := vec.Get(0x60)
	irqBefore := vec.Get(IRQVector(5))

	res, err := Install(testImage(t, nil), host, vec)
	require.NoError(t, err)
	require.NoError(t, res.Uninstall(vec))

	assert.Equal(t, apiBefore, vec.Get(0x60))
	assert.Equal(t, irqBefore, vec.Get(IRQVector(5)))
	assert.Zero(t, host.Resident())
}

func TestIRQVectorMapping(t *testing.T) {
	cases := []struct {
		irq  uint8
		want uint8
	}{
		{0, 0x08},
		{5, 0x0D},
		{7, 0x0F},
		{8, 0x70},
		{10, 0x72},
		{15, 0x77},
	}
	for _, tc := range cases {
		if got := IRQVector(tc.irq); got != tc.want {
			t.Errorf("IRQVector(%d) = 0x%02x, want 0x%02x", tc.irq, got, tc.want)
		}
	}
}
