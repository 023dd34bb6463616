package utils

import (
	"os"

	"github.com/joho/godotenv"
)

func LoadEnv() {
	godotenv.Load()
}

func AdminKey() string {
	return os.Getenv("ADMIN_KEY")
}
