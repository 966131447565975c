package sqlinline

const QInsertCase = `--sql 5e36fce9-8e05-4d6a-9409-c18875fee7a9
insert into cases(
  id,
  external_job_id,
  title,
  description,
  media,
  status,
  version,
  created_at,
  updated_at
) values (
  $1::uuid,
  nullif($2::text, ''),
  $3::text,
  $4::text,
  coalesce($5::jsonb, '[]'::jsonb),
  $6::text,
  1,
  $7::timestamptz,
  $7::timestamptz
)
returning version;
`

const QSelectCaseByID = `--sql 9e45b070-573d-4048-a386-11fcd8717f90
select
  id::text,
  external_job_id,
  title,
  description,
  triage,
  answers,
  tenant_text,
  vision_context,
  vision,
  diagnosis,
  pricing,
  quote_analysis,
  media,
  status,
  version,
  created_at,
  updated_at
from cases
where id = $1::uuid
limit 1;
`

// QUpdateCase writes the whole document only when the stored version still
// matches; no row back means the case changed underneath the caller.
const QUpdateCase = `--sql 05d15822-6b57-4d0f-850f-5cb41bf90544
update cases set
  title = $3::text,
  description = $4::text,
  triage = $5::jsonb,
  answers = $6::jsonb,
  tenant_text = $7::text,
  vision_context = $8::text,
  vision = $9::jsonb,
  diagnosis = $10::jsonb,
  pricing = $11::jsonb,
  quote_analysis = $12::jsonb,
  media = coalesce($13::jsonb, '[]'::jsonb),
  status = $14::text,
  version = version + 1,
  updated_at = $15::timestamptz
where id = $1::uuid
  and version = $2::int
returning version;
`

const QListRecentCases = `--sql 3fe6f6ad-3ab0-49a8-81ee-1c68940372f3
select
  id::text,
  external_job_id,
  title,
  description,
  triage,
  answers,
  tenant_text,
  vision_context,
  vision,
  diagnosis,
  pricing,
  quote_analysis,
  media,
  status,
  version,
  created_at,
  updated_at
from cases
order by created_at desc
limit $1::int;
`
