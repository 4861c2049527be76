// Package consts houses some constants needed across jsrt
package consts

// Version contains the current semantic version of jsrt.
const Version = "0.1.0"
