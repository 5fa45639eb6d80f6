// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import "github.com/kraklabs/callweave/pkg/sigparse"

// ParamTypes parses f.Signature into its per-parameter declared types,
// the same normalization sigparse applies to generics, unions, and array
// types. Returns nil if f.Signature is empty or has no parenthesized
// parameter list.
func (f Function) ParamTypes() []sigparse.ParamInfo {
	if f.Signature == "" {
		return nil
	}
	return sigparse.ParseParams(f.Signature)
}
