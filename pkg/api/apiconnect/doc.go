// Package apiconnect holds the Connect handler and client constructors
// for the famsplit services. Procedures live under /famsplit.v1.<Service>/.
package apiconnect
