//go:build !accelerate

package main

const blasName = "gonum (pure Go)"
