// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package specialist

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// uncertainMarker is the token specialists are instructed to emit when the
// evidence is insufficient. The parser strips it and sets the uncertainty
// flag.
const uncertainMarker = "[UNCERTAIN]"

// citationInstruction tells the model how to cite. The parser only accepts
// this exact form, which is what makes citation integrity checkable.
const citationInstruction = "When you use information from a document, cite it inline as " +
	"[SOURCE: <id>] using the document's id exactly as given. Never cite a document " +
	"that was not provided. If the provided documentation is insufficient to answer " +
	"confidently, begin your answer with " + uncertainMarker + "."

// routeInstructions vary the generation posture by route.
var routeInstructions = map[datatypes.Route]string{
	datatypes.RouteDirectSpecialist: "Answer directly from the provided documentation. " +
		"Stay close to the source text and avoid speculation beyond it.",
	datatypes.RouteSpecialistWithEnrichment: "The documentation below is sparse. Synthesize " +
		"a careful answer across it, state clearly which parts are documented and which " +
		"are your general engineering judgment, and hedge accordingly.",
	datatypes.RouteGeneralistFallback: "Answer as a cross-domain maintenance generalist. " +
		"Only rely on the documents below if any are provided.",
}

// noEvidenceNotice must appear in generalist answers produced with no
// grounding evidence. Enforced in code after generation, not only in the
// prompt.
const noEvidenceNotice = "No supporting documentation was found in the knowledge base for this question."

// buildPrompt assembles the generation request: domain persona, route
// instruction, source-tagged evidence, prior turns, and the question.
func buildPrompt(persona string, query *datatypes.Query, cov datatypes.KBCoverage, route datatypes.Route) string {
	var b strings.Builder

	b.WriteString(persona)
	b.WriteString("\n\n")
	if instr, ok := routeInstructions[route]; ok {
		b.WriteString(instr)
		b.WriteString("\n")
	}
	b.WriteString(citationInstruction)
	b.WriteString("\n\n")

	if len(cov.Documents) > 0 {
		b.WriteString("Documentation:\n")
		for i, doc := range cov.Documents {
			fmt.Fprintf(&b, "--- Document %d (id: %s", i+1, doc.SourceID)
			if doc.Domain != "" {
				fmt.Fprintf(&b, ", vendor: %s", doc.Domain)
			}
			b.WriteString(") ---\n")
			b.WriteString(doc.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Documentation: none was found for this question.\n\n")
	}

	if len(query.PriorTurns) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range query.PriorTurns {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, turn.Answer)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", query.Text)
	return b.String()
}

// domainPersona returns the instruction persona for a vendor domain.
func domainPersona(domain string) string {
	return fmt.Sprintf("You are a senior field support engineer specializing in %s industrial "+
		"equipment: drives, PLCs, and motion systems. You help maintenance technicians "+
		"diagnose and fix problems.", domain)
}

const generalistPersona = "You are an experienced cross-domain industrial maintenance " +
	"engineer. You help technicians with equipment questions spanning many vendors."
