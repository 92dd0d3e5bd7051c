// Package logging provides leveled logging for the PDF preview service.
//
// The level is read once from the DEBUG and LOG_LEVEL environment variables;
// the default is info.
package logging
