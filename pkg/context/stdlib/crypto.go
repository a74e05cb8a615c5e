package stdlib

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/value"
)

func registerCrypto(b *context.Builder) {
	b.Register("std::crypto::aes_encrypt", aesEncrypt)
	b.Register("std::crypto::aes_decrypt", aesDecrypt)
	b.Register("std::crypto::aes_generate_key", aesGenerateKey)
	b.Register("std::crypto::sha256", sha256Hash)
	b.Register("std::crypto::sha512", sha512Hash)
	b.Register("std::crypto::md5", md5Hash)
	b.Register("std::crypto::base64_encode", base64Encode)
	b.Register("std::crypto::base64_decode", base64Decode)
}

func resultErr(s context.Stack, err error) error {
	s.Push(value.NewResult(value.Result{Ok: false, Value: value.NewString(err.Error())}))
	return nil
}

func resultOkString(s context.Stack, v string) error {
	s.Push(value.NewResult(value.Result{Ok: true, Value: value.NewString(v)}))
	return nil
}

func aesEncrypt(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	data, key := []byte(argString(args[0])), []byte(argString(args[1]))
	if len(key) != 32 {
		return resultErr(s, fmt.Errorf("AES key must be 32 bytes, got %d", len(key)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return resultErr(s, err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return resultErr(s, err)
	}
	padding := aes.BlockSize - (len(data) % aes.BlockSize)
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	result := append(iv, ciphertext...)
	return resultOkString(s, base64.StdEncoding.EncodeToString(result))
}

func aesDecrypt(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	data, key := argString(args[0]), []byte(argString(args[1]))
	if len(key) != 32 {
		return resultErr(s, fmt.Errorf("AES key must be 32 bytes, got %d", len(key)))
	}
	encrypted, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return resultErr(s, err)
	}
	if len(encrypted) < aes.BlockSize {
		return resultErr(s, fmt.Errorf("ciphertext too short"))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return resultErr(s, err)
	}
	iv, ciphertext := encrypted[:aes.BlockSize], encrypted[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	if len(plaintext) == 0 {
		return resultErr(s, fmt.Errorf("invalid padding"))
	}
	padding := int(plaintext[len(plaintext)-1])
	if padding > len(plaintext) || padding > aes.BlockSize {
		return resultErr(s, fmt.Errorf("invalid padding"))
	}
	return resultOkString(s, string(plaintext[:len(plaintext)-padding]))
}

func aesGenerateKey(s context.Stack, argc int) error {
	if _, err := popArgs(s, argc); err != nil {
		return err
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, base64.StdEncoding.EncodeToString(key))
}

func sha256Hash(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	sum := sha256.Sum256([]byte(argString(args[0])))
	s.Push(value.NewString(fmt.Sprintf("%x", sum)))
	return nil
}

func sha512Hash(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	sum := sha512.Sum512([]byte(argString(args[0])))
	s.Push(value.NewString(fmt.Sprintf("%x", sum)))
	return nil
}

func md5Hash(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	sum := md5.Sum([]byte(argString(args[0])))
	s.Push(value.NewString(fmt.Sprintf("%x", sum)))
	return nil
}

func base64Encode(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	s.Push(value.NewString(base64.StdEncoding.EncodeToString([]byte(argString(args[0])))))
	return nil
}

func base64Decode(s context.Stack, argc int) error {
	args, err := popArgs(s, argc)
	if err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(argString(args[0]))
	if err != nil {
		return resultErr(s, err)
	}
	return resultOkString(s, string(decoded))
}
