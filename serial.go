// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sesstype

import "code.hybscloud.com/atomix"

// Serial is a monotonically increasing session identifier. Both endpoints
// made by NewPair share one serial; Attach numbers its endpoint locally.
type Serial = uint32

var serials atomix.Uint32

// nextSerial numbers a new session, starting at 1.
func nextSerial() Serial {
	return serials.Add(1)
}
