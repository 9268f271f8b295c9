// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gatt

import "fmt"

// ATTError is an attribute protocol error code.
//
// https://www.bluetooth.com/wp-content/uploads/Files/Specification/HTML/Core-54/out/en/host/attribute-protocol--att-.html
type ATTError uint8

const (
	ErrInvalidHandle            ATTError = 0x01
	ErrReadNotPermitted         ATTError = 0x02
	ErrWriteNotPermitted        ATTError = 0x03
	ErrInvalidPDU               ATTError = 0x04
	ErrInsufficientAuthn        ATTError = 0x05
	ErrRequestNotSupported      ATTError = 0x06
	ErrInvalidOffset            ATTError = 0x07
	ErrInsufficientAuthz        ATTError = 0x08
	ErrPrepareQueueFull         ATTError = 0x09
	ErrAttributeNotFound        ATTError = 0x0a
	ErrAttributeNotLong         ATTError = 0x0b
	ErrInsufficientEncKeySize   ATTError = 0x0c
	ErrInvalidAttributeValueLen ATTError = 0x0d
	ErrUnlikely                 ATTError = 0x0e
	ErrInsufficientEncryption   ATTError = 0x0f
	ErrUnsupportedGroupType     ATTError = 0x10
	ErrInsufficientResources    ATTError = 0x11
	ErrDatabaseOutOfSync        ATTError = 0x12
	ErrValueNotAllowed          ATTError = 0x13
	ErrWriteRequestRejected     ATTError = 0xfc
	ErrCCCDImproperlyConfigured ATTError = 0xfd
	ErrProcedureInProgress      ATTError = 0xfe
	ErrOutOfRange               ATTError = 0xff
)

var attErrorText = map[ATTError]string{
	ErrInvalidHandle:            "Invalid Handle",
	ErrReadNotPermitted:         "Read Not Permitted",
	ErrWriteNotPermitted:        "Write Not Permitted",
	ErrInvalidPDU:               "Invalid PDU",
	ErrInsufficientAuthn:        "Insufficient Authentication",
	ErrRequestNotSupported:      "Request Not Supported",
	ErrInvalidOffset:            "Invalid Offset",
	ErrInsufficientAuthz:        "Insufficient Authorization",
	ErrPrepareQueueFull:         "Prepare Queue Full",
	ErrAttributeNotFound:        "Attribute Not Found",
	ErrAttributeNotLong:         "Attribute Not Long",
	ErrInsufficientEncKeySize:   "Insufficient Encryption Key Size",
	ErrInvalidAttributeValueLen: "Invalid Attribute Value Length",
	ErrUnlikely:                 "Unlikely Error",
	ErrInsufficientEncryption:   "Insufficient Encryption",
	ErrUnsupportedGroupType:     "Unsupported Group Type",
	ErrInsufficientResources:    "Insufficient Resources",
	ErrDatabaseOutOfSync:        "Database Out of Sync",
	ErrValueNotAllowed:          "Value Not Allowed",
	ErrWriteRequestRejected:     "Write Request Rejected",
	ErrCCCDImproperlyConfigured: "CCC Improperly Configured",
	ErrProcedureInProgress:      "Procedure Already in Progress",
	ErrOutOfRange:               "Out of Range",
}

func (e ATTError) String() string {
	if e == 0 {
		return "Success"
	}
	if s, ok := attErrorText[e]; ok {
		return s
	}
	if e >= 0x80 && e <= 0x9f {
		return fmt.Sprintf("Application Error (%#02x)", uint8(e))
	}
	return fmt.Sprintf("Reserved Error (%#02x)", uint8(e))
}

// Error implements the error interface. The zero ATTError
// is not an error and should not be returned as one.
func (e ATTError) Error() string {
	return "att: " + e.String()
}
