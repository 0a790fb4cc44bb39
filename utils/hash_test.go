package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}
