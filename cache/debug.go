//go:build cachesim_debug

package cache

const debugging = true

func assert(cond bool, message string) {
	if !cond {
		panic(message)
	}
}
