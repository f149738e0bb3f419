package main

import (
	"bytes"
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

var (
	errPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	errPasswordMismatch = errors.New("passwords do not match")
)

func (cli *commandLine) readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return pwd, err
}

func (cli *commandLine) hashPassword() error {
	pwd, err := cli.readPassword("Enter password:")
	if err != nil {
		return err
	}
	if len(pwd) < minPasswordLen {
		return errPasswordTooShort
	}
	confirm, err := cli.readPassword("Confirm password:")
	if err != nil {
		return err
	}
	if !bytes.Equal(pwd, confirm) {
		return errPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(hash))
	return nil
}
