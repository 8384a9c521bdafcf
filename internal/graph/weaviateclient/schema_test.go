// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package weaviate

import "testing"

func TestSchemaClasses_MatchClassConstants(t *testing.T) {
	want := map[string]bool{
		ClassTechnology: false,
		ClassCompany:    false,
		ClassDocument:   false,
		ClassCommunity:  false,
	}
	for _, class := range schemaClasses() {
		if _, ok := want[class.Class]; !ok {
			t.Errorf("schemaClasses returned unexpected class %q", class.Class)
			continue
		}
		want[class.Class] = true
		if len(class.Properties) == 0 {
			t.Errorf("class %q declares no properties", class.Class)
		}
	}
	for class, seen := range want {
		if !seen {
			t.Errorf("schemaClasses did not include %q", class)
		}
	}
}
