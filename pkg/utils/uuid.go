package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const characters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const sessionIDLength = 21

// GenerateSessionID gera um identificador opaco para sessões de dashboard
func GenerateSessionID() (string, error) {
	return gonanoid.Generate(characters, sessionIDLength)
}
