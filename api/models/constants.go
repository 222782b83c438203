package models

// Alphabet for generated message and pair ids.
var Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
