// Copyright 2025 AK Software GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import "fmt"

type UploadError struct {
	Directory string
	Err       error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Directory, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

type ArchiveError struct {
	Directory string
	Bucket    string
	Err       error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s to %s: %v", e.Directory, e.Bucket, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
