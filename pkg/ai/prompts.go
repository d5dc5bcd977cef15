package ai

// RecordDelimiter separates extraction records in the model output.
const RecordDelimiter = "##"

const ExtractPrompt = `
# Task Context
You are tasked with extracting entities and relationships from a text document that is potentially relevant to this activity.

# Background Data
- **Entity_types:** [%s]

# Detailed Task Description & Rules
1. Identify all entities. For each identified entity, extract the following information:
   - entity_name: Name of the entity, capitalized
   - entity_type: One of the following types: [%s]
   - entity_description: Comprehensive description of the entity's attributes and activities
   Format each entity as ("entity"|<entity_name>|<entity_type>|<entity_description>)

2. From the entities identified in step 1, identify all pairs of (source_entity, target_entity) that are *clearly related* to each other.
   For each pair of related entities, extract the following information:
   - source_entity: name of the source entity, as identified in step 1
   - target_entity: name of the target entity, as identified in step 1
   - relationship_description: explanation as to why you think the source entity and the target entity are related to each other
   - relationship_keywords: one or more high-level key words that summarize the overarching nature of the relationship
   Format each relationship as ("relationship"|<source_entity>|<target_entity>|<relationship_description>|<relationship_keywords>)

3. Return output in English as a single list of all the entities and relationships identified in steps 1 and 2. Use "##" as the list delimiter.

# Output Formatting
Return only the delimited list. Do not include commentary, explanations, or text outside the records.

# Real Data
Text:
%s
`

const ResolvePrompt = `
# Task Context
You are a helpful assistant specialized in identifying names that refer to the same real-world entity in a knowledge graph.

# Background Data
Entity names:
%s

# Detailed Task Description & Rules
- Group names that refer to the same real-world entity despite naming differences (case, legal suffixes, abbreviations, punctuation).
- Entities with distinct identities must remain in separate groups (e.g., "AMAZON" and "AMAZON WEB SERVICES" are separate).
- Only include names from the provided list. Names without synonyms must be omitted entirely.
- The first element of each group is the canonical name the others will be merged into.

# Output Formatting
Return a JSON object with this structure:
{
  "groups": [
    ["<canonical name>", "<synonym>", "<synonym>"]
  ]
}
Output must be valid JSON only (no commentary, no extra text). Return {"groups": []} when no names are synonyms.
`

const KeywordsPrompt = `
# Task Context
You are a helpful assistant tasked with identifying both high-level and low-level keywords in the user's query.

# Detailed Task Description & Rules
- High-level keywords focus on overarching concepts or themes.
- Low-level keywords focus on specific entities, details, or concrete terms.

# Output Formatting
Output the keywords in strict JSON format with exactly two keys: "high_level_keywords" (list of strings) and "low_level_keywords" (list of strings).
Output must be valid JSON only (no commentary, no extra text).
`

const CommunityPrompt = `
# Task Context
You are a technical writer producing a digest of one community of a knowledge graph: a cluster of densely-interconnected entities and the relationships between them.

# Detailed Task Description & Rules
- Write one cohesive natural-language summary of the community from the provided entity and relationship records.
- Cover every entity by name at least once and preserve concrete details (quantities, dates, roles, places).
- Only use the information given in the records. Do not infer, assume, or add external knowledge.

# Output Formatting
Return plain text only. Do not use markdown, lists, bullet points, or meta-comments. Output only the summary.
`

// AnswerSystemPrompt constrains the answer model to the retrieved context.
const AnswerSystemPrompt = `You are AURA. Answer using the provided context. If the context does not contain the information needed, say explicitly that you do not have enough information. Do not use outside knowledge.`
