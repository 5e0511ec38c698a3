package cse

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
)

// ccm implements AES-CCM (RFC 3610) as a cipher.AEAD. The standard library
// only ships GCM; the token format requires CCM with a 12-byte nonce and an
// 8-byte tag, so the mode is implemented here on top of any 128-bit block
// cipher.
type ccm struct {
	b         cipher.Block
	nonceSize int
	tagSize   int
}

const ccmBlockSize = 16

// NewCCM wraps a 128-bit block cipher in CCM mode. The nonce size must be
// between 7 and 13 bytes; the tag size an even number between 4 and 16.
func NewCCM(b cipher.Block, nonceSize, tagSize int) (cipher.AEAD, error) {
	if b.BlockSize() != ccmBlockSize {
		return nil, errors.New("cse: ccm requires a 128-bit block cipher")
	}
	if nonceSize < 7 || nonceSize > 13 {
		return nil, fmt.Errorf("cse: invalid ccm nonce size %d", nonceSize)
	}
	if tagSize < 4 || tagSize > 16 || tagSize%2 != 0 {
		return nil, fmt.Errorf("cse: invalid ccm tag size %d", tagSize)
	}
	return &ccm{b: b, nonceSize: nonceSize, tagSize: tagSize}, nil
}

func (c *ccm) NonceSize() int { return c.nonceSize }
func (c *ccm) Overhead() int  { return c.tagSize }

// lenLen is the size in bytes of the message-length field (L in RFC 3610).
func (c *ccm) lenLen() int { return 15 - c.nonceSize }

// maxPayload is the largest message encodable with L length octets.
func (c *ccm) maxPayload() uint64 {
	l := uint(c.lenLen())
	if l >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*l) - 1
}

func (c *ccm) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != c.nonceSize {
		panic("cse: incorrect nonce length given to CCM")
	}
	if uint64(len(plaintext)) > c.maxPayload() {
		panic("cse: message too large for CCM")
	}

	tag := c.mac(nonce, plaintext, additionalData)

	ret, out := sliceForAppend(dst, len(plaintext)+c.tagSize)
	c.ctrXOR(out, plaintext, nonce, 1)

	// The tag is encrypted with counter block zero.
	var s0 [ccmBlockSize]byte
	c.b.Encrypt(s0[:], c.counterBlock(nonce, 0))
	for i := 0; i < c.tagSize; i++ {
		out[len(plaintext)+i] = tag[i] ^ s0[i]
	}
	return ret
}

func (c *ccm) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != c.nonceSize {
		return nil, errors.New("cse: incorrect nonce length given to CCM")
	}
	if len(ciphertext) < c.tagSize {
		return nil, errors.New("cse: ciphertext too short")
	}

	body := ciphertext[:len(ciphertext)-c.tagSize]
	sealedTag := ciphertext[len(ciphertext)-c.tagSize:]

	ret, out := sliceForAppend(dst, len(body))
	c.ctrXOR(out, body, nonce, 1)

	expected := c.mac(nonce, out, additionalData)
	var s0 [ccmBlockSize]byte
	c.b.Encrypt(s0[:], c.counterBlock(nonce, 0))

	tag := make([]byte, c.tagSize)
	for i := range tag {
		tag[i] = sealedTag[i] ^ s0[i]
	}
	if subtle.ConstantTimeCompare(tag, expected[:c.tagSize]) != 1 {
		for i := range out {
			out[i] = 0
		}
		return nil, errors.New("cse: ccm authentication failed")
	}
	return ret, nil
}

// mac computes the CBC-MAC over the B0 block, the encoded additional data
// and the zero-padded payload.
func (c *ccm) mac(nonce, payload, additionalData []byte) [ccmBlockSize]byte {
	var b0 [ccmBlockSize]byte
	b0[0] = byte(c.lenLen() - 1)
	b0[0] |= byte((c.tagSize - 2) / 2 << 3)
	if len(additionalData) > 0 {
		b0[0] |= 1 << 6
	}
	copy(b0[1:], nonce)
	n := uint64(len(payload))
	for i := ccmBlockSize - 1; i > c.nonceSize; i-- {
		b0[i] = byte(n)
		n >>= 8
	}

	var mac [ccmBlockSize]byte
	c.b.Encrypt(mac[:], b0[:])

	if len(additionalData) > 0 {
		// Additional data is prefixed with its length. Sizes beyond 2^16-2^8
		// never occur for this token format, so the two-octet encoding is
		// enough.
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], uint16(len(additionalData)))
		c.cbcUpdate(&mac, append(hdr[:], additionalData...))
	}
	c.cbcUpdate(&mac, payload)
	return mac
}

// cbcUpdate folds data into the running CBC-MAC, zero padding the last block.
func (c *ccm) cbcUpdate(mac *[ccmBlockSize]byte, data []byte) {
	for len(data) > 0 {
		n := ccmBlockSize
		if len(data) < n {
			n = len(data)
		}
		for i := 0; i < n; i++ {
			mac[i] ^= data[i]
		}
		c.b.Encrypt(mac[:], mac[:])
		data = data[n:]
	}
}

// counterBlock builds the A_i counter block for the given index.
func (c *ccm) counterBlock(nonce []byte, index uint64) []byte {
	block := make([]byte, ccmBlockSize)
	block[0] = byte(c.lenLen() - 1)
	copy(block[1:], nonce)
	for i := ccmBlockSize - 1; i > c.nonceSize; i-- {
		block[i] = byte(index)
		index >>= 8
	}
	return block
}

// ctrXOR applies the CCM keystream starting at counter start to src.
func (c *ccm) ctrXOR(dst, src []byte, nonce []byte, start uint64) {
	var keystream [ccmBlockSize]byte
	counter := start
	for len(src) > 0 {
		c.b.Encrypt(keystream[:], c.counterBlock(nonce, counter))
		counter++
		n := ccmBlockSize
		if len(src) < n {
			n = len(src)
		}
		for i := 0; i < n; i++ {
			dst[i] = src[i] ^ keystream[i]
		}
		dst = dst[n:]
		src = src[n:]
	}
}

// sliceForAppend extends dst by n bytes, reusing capacity when possible.
func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}
