// Package user handles registration and sub-account creation. Registering a
// user creates their MAIN account with the default daily limit; savings
// accounts are created on demand.
package user
