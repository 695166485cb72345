package rcru64

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensix/ransomdec/internal/gcmstream"
)

var (
	testAESKey    = []byte("0123456789abcdef0123456789abcdef")
	testBaseNonce = makePattern(32, 0xA0)
	testFastNonce = makePattern(32, 0x5B)
)

var (
	testPriv    *rsa.PrivateKey
	testPrivErr error
)

func init() {
	testPriv, testPrivErr = rsa.GenerateKey(rand.Reader, 2048)
}

func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	require.NoError(t, testPrivErr, "generating test RSA key")

	return testPriv
}

// makePattern fills n bytes with a fixed non-repeating-looking sequence so a
// misplaced region boundary shows up as a content mismatch.
func makePattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7) + seed
	}

	return b
}

// wrapTestBlob builds and RSA-wraps a key blob the way containers carry it.
func wrapTestBlob(t *testing.T, pub *rsa.PublicKey, key, nonce []byte) []byte {
	t.Helper()

	plain := append([]byte{}, keyDataMarker1...)
	plain = append(plain, key...)
	plain = append(plain, keyDataMarker2...)
	plain = append(plain, nonce...)
	plain = append(plain, keyDataMarker3...)

	blob, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plain)
	require.NoError(t, err, "wrapping key blob")

	return blob
}

// encryptRegion applies the keystream in place over data[off:off+n], which is
// its own inverse and therefore exactly what the engine must undo.
func encryptRegion(t *testing.T, block cipher.Block, nonce, data []byte, off, n int) {
	t.Helper()

	require.NoError(t, gcmstream.XORKeyStream(block, nonce, data[off:off+n], data[off:off+n]))
}

func testBlock(t *testing.T) cipher.Block {
	t.Helper()

	block, err := aes.NewCipher(testAESKey)
	require.NoError(t, err)

	return block
}

// writeContainer places a finished container under a temp dir.
func writeContainer(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestSelectMode(t *testing.T) {
	cases := []struct {
		name string
		md   metadata
		want decryptMode
	}{
		{"chunked wins over size", metadata{chunked: true, fileSize: minBigFileSize}, modeChunked},
		{"at big threshold", metadata{fileSize: minBigFileSize}, modeFastBig},
		{"just below big threshold", metadata{fileSize: minBigFileSize - 1}, modeSmallMultiBlock},
		{"just above one block", metadata{fileSize: encBlockSize + 1}, modeSmallMultiBlock},
		{"exactly one block", metadata{fileSize: encBlockSize}, modeSmallSingleBlock},
		{"tiny", metadata{fileSize: 100}, modeSmallSingleBlock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, selectMode(&tc.md))
		})
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("dir", "report.docx"),
		outputPath(filepath.Join("dir", "report.docx_[ID-AB12CD34].[mail@evil.example].rcru64")))

	assert.Equal(t, "sample.bin.dec", outputPath("sample.bin"))
}

func TestDecryptChunked(t *testing.T) {
	block := testBlock(t)

	plain := makePattern(30000, 3)
	body := append([]byte{}, plain...)

	// Chunk geometry 0.01/0.005 of the block unit: 10240-byte chunks with
	// 5120-byte gaps, so the second chunk starts at 15360.
	encryptRegion(t, block, testBaseNonce[:chunkNonceSize], body, 0, 10240)
	encryptRegion(t, block, chunkNonce(rnd64Next(rnd64InitState)), body, 15360, 10240)

	data := append(body, metadataMarker...)
	data = append(data, wrapTestBlob(t, &testPrivateKey(t).PublicKey, testAESKey, testBaseNonce)...)
	data = append(data, []byte("P7A1s0.01:0.005$f1;Fs1z330000")...)
	data = append(data, endTagMarker...)

	path := writeContainer(t, "report.docx_[ID-AB12CD34].[mail@evil.example].rcru64", data)

	outPath, size, err := DecryptFile(path, testPrivateKey(t), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "report.docx"), outPath)
	assert.Equal(t, int64(29999), size)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plain[:29999], got), "recovered plaintext differs")
}

func TestDecryptSmallSingleBlock(t *testing.T) {
	block := testBlock(t)

	plain := makePattern(4984, 3)
	body := append([]byte{}, plain...)
	encryptRegion(t, block, testBaseNonce, body, 0, len(body))

	// The last 16 bytes of the plaintext region hold the end marker in the
	// clear; the recorded region end must shrink past it.
	body = append(body, smallFileEndMarker1...)

	data := append(body, metadataMarker...)
	data = append(data, wrapTestBlob(t, &testPrivateKey(t).PublicKey, testAESKey, testBaseNonce)...)

	path := writeContainer(t, "invoice.pdf_[ID-00FF00FF].[mail@evil.example].rcru64", data)

	outPath, size, err := DecryptFile(path, testPrivateKey(t), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(4983), size)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plain[:4983], got), "recovered plaintext differs")
}

func TestDecryptSmallSingleBlockShortMarker(t *testing.T) {
	block := testBlock(t)

	plain := makePattern(5002, 3)
	body := append([]byte{}, plain...)
	encryptRegion(t, block, testBaseNonce, body, 0, 5000)

	body = append(body, smallFileEndMarker2...)

	data := append(body, metadataMarker...)
	data = append(data, wrapTestBlob(t, &testPrivateKey(t).PublicKey, testAESKey, testBaseNonce)...)

	path := writeContainer(t, "notes.txt_[ID-12345678].[mail@evil.example].rcru64", data)

	// fileSize 5016, encrypted size 5000: two ciphertext bytes precede the
	// shorter marker inside the 16-byte tail window.
	outPath, size, err := DecryptFile(path, testPrivateKey(t), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(5001), size)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)

	want := append(append([]byte{}, plain[:5000]...), body[5000])
	assert.True(t, bytes.Equal(want, got), "recovered plaintext differs")
}

func TestDecryptSmallMultiBlock(t *testing.T) {
	block := testBlock(t)

	const fileSize = 600000

	plain := makePattern(fileSize, 3)
	body := append([]byte{}, plain...)

	// encSize is fileSize-2: one sequencer step covers the short second block,
	// the final two bytes stay as stored.
	encryptRegion(t, block, testBaseNonce[:fullNonceSize1], body, 0, encBlockSize)
	encryptRegion(t, block, chunkNonce(rnd64Next(rnd64InitState)), body, encBlockSize, fileSize-2-encBlockSize)

	data := append(body, metadataMarker...)
	data = append(data, wrapTestBlob(t, &testPrivateKey(t).PublicKey, testAESKey, testBaseNonce)...)

	path := writeContainer(t, "backup.db_[ID-ABCDEF01].[mail@evil.example].rcru64", data)

	outPath, size, err := DecryptFile(path, testPrivateKey(t), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(fileSize-1), size)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plain[:fileSize-1], got), "recovered plaintext differs")
}

func TestDecryptFastBig(t *testing.T) {
	block := testBlock(t)

	const fileSize = minBigFileSize // threshold boundary takes the fast path

	plain := makePattern(fileSize, 3)
	body := append([]byte{}, plain...)

	head := firstEncBlockSize - gcmstream.BlockSize
	tail := encBlockSize - gcmstream.BlockSize

	encryptRegion(t, block, testBaseNonce, body, 0, head)
	encryptRegion(t, block, testFastNonce, body, fileSize-encBlockSize, tail)

	data := append(body, metadataMarker...)
	data = append(data, wrapTestBlob(t, &testPrivateKey(t).PublicKey, testAESKey, testBaseNonce)...)

	path := writeContainer(t, "video.mp4_[ID-55AA55AA].[mail@evil.example].rcru64", data)

	outPath, size, err := DecryptFile(path, testPrivateKey(t), testFastNonce)
	require.NoError(t, err)

	assert.Equal(t, int64(fileSize-1), size)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(plain[:fileSize-1], got), "recovered plaintext differs")
}

func TestDecryptFastBigRequiresNonce(t *testing.T) {
	body := makePattern(minBigFileSize, 3)

	data := append(body, metadataMarker...)
	data = append(data, wrapTestBlob(t, &testPrivateKey(t).PublicKey, testAESKey, testBaseNonce)...)

	path := writeContainer(t, "video.mp4_[ID-55AA55AA].[mail@evil.example].rcru64", data)

	_, _, err := DecryptFile(path, testPrivateKey(t), nil)
	require.ErrorIs(t, err, ErrFastNonceRequired)

	// The working copy must not survive a failed run.
	_, statErr := os.Stat(filepath.Join(filepath.Dir(path), "video.mp4"))
	assert.True(t, os.IsNotExist(statErr), "failed working copy left behind")
}

func TestDecryptWrongPrivateKey(t *testing.T) {
	body := makePattern(5000, 3)

	data := append(body, metadataMarker...)
	data = append(data, wrapTestBlob(t, &testPrivateKey(t).PublicKey, testAESKey, testBaseNonce)...)

	path := writeContainer(t, "doc.txt_[ID-00000000].[mail@evil.example].rcru64", data)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, _, err = DecryptFile(path, other, nil)
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestUnwrapKeyBlob(t *testing.T) {
	priv := testPrivateKey(t)

	t.Run("roundtrip", func(t *testing.T) {
		blob := wrapTestBlob(t, &priv.PublicKey, testAESKey, testBaseNonce)

		key, nonce, err := unwrapKeyBlob(blob, priv)
		require.NoError(t, err)

		assert.Equal(t, testAESKey, key)
		assert.Equal(t, testBaseNonce, nonce)
	})

	t.Run("short blob", func(t *testing.T) {
		_, _, err := unwrapKeyBlob(make([]byte, 64), priv)
		assert.ErrorIs(t, err, ErrMalformedKeyBlob)
	})

	t.Run("missing markers", func(t *testing.T) {
		blob, err := rsa.EncryptPKCS1v15(rand.Reader, &priv.PublicKey, []byte("no markers in here at all"))
		require.NoError(t, err)

		_, _, err = unwrapKeyBlob(blob, priv)
		assert.ErrorIs(t, err, ErrMalformedKeyBlob)
	})
}
